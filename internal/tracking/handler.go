// Package tracking serves the callback endpoints embedded in lure messages:
// the open pixel, the landing page, the payload download, and the fake login
// form. Every hit is recorded before the response is written.
package tracking

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/mailing"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
	"github.com/ignite/phishing-simulator/internal/token"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// maxFormBytes bounds the login form body.
const maxFormBytes = 64 << 10

// Recorder is the engagement recording the handler needs.
type Recorder interface {
	RecordOpen(ctx context.Context, t domain.Token, meta domain.RequestMeta) (domain.Event, error)
	RecordClick(ctx context.Context, t domain.Token, meta domain.RequestMeta) (domain.Event, error)
	RecordDownload(ctx context.Context, t domain.Token, meta domain.RequestMeta) (domain.Event, error)
	RecordCredentials(ctx context.Context, t domain.Token, username, password string, meta domain.RequestMeta) (domain.CredentialRecord, domain.Event, error)
}

// LandingRenderer renders the landing page for a token.
type LandingRenderer interface {
	RenderLanding(t domain.Token, loginURL string) (string, error)
}

// Config controls what the endpoints serve.
type Config struct {
	// PayloadPath is the file served by the download endpoint.
	PayloadPath string
	// PayloadName is the download file name shown to the recipient.
	PayloadName string
	// LoginRedirectURL is where the recipient lands after submitting the
	// fake login form.
	LoginRedirectURL string
}

// Handler serves the tracking endpoints.
type Handler struct {
	rec     Recorder
	landing LandingRenderer
	pub     EventPublisher
	cfg     Config
}

// NewHandler creates the tracking handler. pub may be nil.
func NewHandler(rec Recorder, landing LandingRenderer, pub EventPublisher, cfg Config) *Handler {
	if cfg.PayloadName == "" && cfg.PayloadPath != "" {
		cfg.PayloadName = filepath.Base(cfg.PayloadPath)
	}
	return &Handler{rec: rec, landing: landing, pub: pub, cfg: cfg}
}

// Routes returns the tracking router, mounted at the site root.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get(mailing.PixelPath, h.HandleOpen)
	r.Get(mailing.LandingPath, h.HandleLanding)
	r.Get(mailing.DownloadPath, h.HandleDownload)
	r.Post(mailing.LoginPath, h.HandleLogin)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleOpen records an open and serves the tracking pixel.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	tok := requestToken(r)
	e, err := h.rec.RecordOpen(r.Context(), tok, requestMeta(r))
	h.after(r.Context(), tok, e, err)
	h.servePixel(w)
}

// HandleLanding records a click and renders the fake login page.
func (h *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	tok := requestToken(r)
	e, err := h.rec.RecordClick(r.Context(), tok, requestMeta(r))
	h.after(r.Context(), tok, e, err)

	loginURL := mailing.NewLinkBuilder("").URL(mailing.LoginPath, tok)
	page, err := h.landing.RenderLanding(tok, loginURL)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(page))
}

// HandleDownload records the download before checking for the payload, so a
// missing file still leaves a trace of the attempt.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	tok := requestToken(r)
	e, err := h.rec.RecordDownload(r.Context(), tok, requestMeta(r))
	h.after(r.Context(), tok, e, err)

	if h.cfg.PayloadPath == "" {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(h.cfg.PayloadPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("opening payload", "path", h.cfg.PayloadPath, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": h.cfg.PayloadName}))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, h.cfg.PayloadName, info.ModTime(), f)
}

// HandleLogin captures the submitted credentials and redirects to the
// configured login page.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	tok := requestToken(r)
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	_, e, err := h.rec.RecordCredentials(r.Context(), tok, username, password, requestMeta(r))
	h.after(r.Context(), tok, e, err)

	target := h.cfg.LoginRedirectURL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

// after logs a recording failure or forwards the recorded event. The
// recipient always gets a normal response.
func (h *Handler) after(ctx context.Context, tok domain.Token, e domain.Event, err error) {
	if err != nil {
		logger.Error("recording engagement", "token", logger.RedactToken(string(tok)), "error", err)
		return
	}
	logger.Info("engagement recorded", "event", string(e.Kind),
		"token", logger.RedactToken(string(e.Token)), "campaign", e.Campaign, "email", e.Email)
	if h.pub != nil {
		h.pub.Publish(ctx, e)
	}
}

// requestToken returns the id query parameter, or an empty token when it
// is not shaped like one.
func requestToken(r *http.Request) domain.Token {
	id := strings.TrimSpace(r.URL.Query().Get(mailing.TokenParam))
	if !token.Valid(id) {
		return ""
	}
	return domain.Token(id)
}

func requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{IPAddress: realIP(r), UserAgent: r.UserAgent()}
}

// realIP returns the client address without its port. Proxy headers are
// applied to RemoteAddr upstream by middleware.RealIP.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
