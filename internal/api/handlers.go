// Package api exposes the operator JSON API: campaign management and
// launch, ad-hoc sends, and read access to the engagement logs.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/httputil"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
	"github.com/ignite/phishing-simulator/internal/service/campaign"
)

// CampaignService manages campaign definitions.
type CampaignService interface {
	Create(ctx context.Context, in campaign.CreateInput) (*domain.Campaign, error)
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context) ([]domain.Campaign, error)
}

// Dispatcher launches campaigns and single sends.
type Dispatcher interface {
	DispatchAll(ctx context.Context, campaignID string) (*domain.BatchResult, error)
	SendAdHoc(ctx context.Context, email string) (domain.Outcome, error)
}

// Reporter reads recorded engagement.
type Reporter interface {
	Events(ctx context.Context) ([]domain.Event, error)
	Credentials(ctx context.Context) ([]domain.CredentialRecord, error)
	Summary(ctx context.Context) (*domain.Summary, error)
}

// Handlers contains the operator API handlers.
type Handlers struct {
	campaigns  CampaignService
	dispatcher Dispatcher
	reporter   Reporter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(campaigns CampaignService, dispatcher Dispatcher, reporter Reporter) *Handlers {
	return &Handlers{campaigns: campaigns, dispatcher: dispatcher, reporter: reporter}
}

// GetSummary returns dashboard counters and recent campaigns.
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.reporter.Summary(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, s)
}

// ListCampaigns returns all campaigns, newest first.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := h.campaigns.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"campaigns": list, "total": len(list)})
}

// CreateCampaign creates a campaign from a name, description and raw
// recipient text.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in campaign.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.campaigns.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, c)
}

// GetCampaign returns one campaign.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, c)
}

// SendCampaign launches a campaign synchronously and reports per-recipient
// failures.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.dispatcher.DispatchAll(r.Context(), id)
	if err != nil && res != nil {
		// Messages went out but the counter could not be updated.
		logger.Error("campaign launched without counter update", "campaign_id", id, "error", err)
		httputil.JSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:   "campaign counter update failed",
			Code:    "storage",
			Details: res,
		})
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, res)
}

type adHocRequest struct {
	Email string `json:"email"`
}

type adHocResponse struct {
	Email   string    `json:"email"`
	Success bool      `json:"success"`
	SentAt  time.Time `json:"sent_at,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// SendAdHoc sends one lure outside any campaign. Delivery failures are
// reported as 502 with the transport detail.
func (h *Handlers) SendAdHoc(w http.ResponseWriter, r *http.Request) {
	var req adHocRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	out, err := h.dispatcher.SendAdHoc(r.Context(), req.Email)
	var de *domain.DeliveryError
	switch {
	case err == nil:
		httputil.OK(w, adHocResponse{Email: out.Email, Success: true, SentAt: out.SentAt})
	case errors.As(err, &de):
		logger.Warn("ad-hoc send failed", "email", out.Email, "error", de.Detail)
		httputil.JSON(w, http.StatusBadGateway, adHocResponse{Email: out.Email, Error: de.Detail})
	default:
		httputil.WriteError(w, err)
	}
}

// ListEvents returns every engagement event, newest first.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reporter.Events(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"events": events, "total": len(events)})
}

// ListCredentials returns every captured credential, newest first.
func (h *Handlers) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.reporter.Credentials(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"credentials": creds, "total": len(creds)})
}
