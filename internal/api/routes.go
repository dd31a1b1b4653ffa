package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/phishing-simulator/internal/pkg/httputil"
)

// RouterOptions configures SetupRoutes.
type RouterOptions struct {
	// AllowedOrigins for the operator UI. Empty disables CORS headers.
	AllowedOrigins []string
	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string
}

// SetupRoutes builds the top-level router: the operator API under /api and
// the tracking endpoints at the root.
func SetupRoutes(h *Handlers, tracker http.Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Logger)
		if len(opts.AllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   opts.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		if opts.APIToken != "" {
			r.Use(requireToken(opts.APIToken))
		}

		r.Get("/summary", h.GetSummary)

		r.Get("/campaigns", h.ListCampaigns)
		r.Post("/campaigns", h.CreateCampaign)
		r.Get("/campaigns/{id}", h.GetCampaign)
		r.Post("/campaigns/{id}/send", h.SendCampaign)

		r.Post("/send", h.SendAdHoc)

		r.Get("/events", h.ListEvents)
		r.Get("/credentials", h.ListCredentials)
	})

	if tracker != nil {
		r.Mount("/", tracker)
	}
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	want := []byte("Bearer " + token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method == http.MethodOptions {
				next.ServeHTTP(w, req)
				return
			}
			got := []byte(strings.TrimSpace(req.Header.Get("Authorization")))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
