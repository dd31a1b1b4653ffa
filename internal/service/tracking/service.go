package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// RecentCampaignLimit is the number of campaigns shown on the dashboard.
const RecentCampaignLimit = 5

// Recorder appends engagement events and captured credentials.
type Recorder struct {
	correlations CorrelationLookup
	events       EventRepository
	credentials  CredentialRepository
	campaigns    CampaignLister
}

// NewRecorder creates a recorder. campaigns may be nil if Summary is not
// used.
func NewRecorder(correlations CorrelationLookup, events EventRepository, credentials CredentialRepository, campaigns CampaignLister) *Recorder {
	return &Recorder{
		correlations: correlations,
		events:       events,
		credentials:  credentials,
		campaigns:    campaigns,
	}
}

// RecordOpen records that the tracking pixel for token was fetched.
func (r *Recorder) RecordOpen(ctx context.Context, token domain.Token, meta domain.RequestMeta) (domain.Event, error) {
	return r.record(ctx, domain.EventEmailOpened, token, meta.String())
}

// RecordClick records that the landing link for token was followed.
func (r *Recorder) RecordClick(ctx context.Context, token domain.Token, meta domain.RequestMeta) (domain.Event, error) {
	return r.record(ctx, domain.EventLinkClicked, token, meta.String())
}

// RecordDownload records that the payload for token was requested.
func (r *Recorder) RecordDownload(ctx context.Context, token domain.Token, meta domain.RequestMeta) (domain.Event, error) {
	return r.record(ctx, domain.EventAttachmentDownloaded, token, meta.String())
}

// RecordCredentials stores a credential submission, then logs a
// credentials_submitted event. The credential is written first so an event
// never exists without its record. On an event failure the stored
// credential is still returned alongside the error.
func (r *Recorder) RecordCredentials(ctx context.Context, token domain.Token, username, password string, meta domain.RequestMeta) (domain.CredentialRecord, domain.Event, error) {
	corr := r.resolve(ctx, token)

	rec, err := r.credentials.Append(ctx, domain.CredentialRecord{
		Token:    token,
		Email:    corr.Email,
		Campaign: corr.CampaignName,
		Username: username,
		Password: password,
	})
	if err != nil {
		return domain.CredentialRecord{}, domain.Event{}, fmt.Errorf("append credentials: %w", err)
	}

	details := "username=" + username
	if m := meta.String(); m != "" {
		details += " " + m
	}
	e, err := r.appendEvent(ctx, domain.EventCredentialsSubmitted, token, corr, details)
	if err != nil {
		return rec, domain.Event{}, err
	}
	return rec, e, nil
}

// Events returns every engagement event, newest first.
func (r *Recorder) Events(ctx context.Context) ([]domain.Event, error) {
	return r.events.List(ctx)
}

// Credentials returns every captured credential, newest first.
func (r *Recorder) Credentials(ctx context.Context) ([]domain.CredentialRecord, error) {
	return r.credentials.List(ctx)
}

// Summary returns dashboard counters and the most recent campaigns.
func (r *Recorder) Summary(ctx context.Context) (*domain.Summary, error) {
	s := &domain.Summary{RecentCampaigns: []domain.Campaign{}}

	if r.campaigns != nil {
		all, err := r.campaigns.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list campaigns: %w", err)
		}
		s.CampaignCount = len(all)
		if len(all) > RecentCampaignLimit {
			all = all[:RecentCampaignLimit]
		}
		s.RecentCampaigns = all
	}

	var err error
	if s.EventsCount, err = r.events.Count(ctx); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if s.CredentialsCount, err = r.credentials.Count(ctx); err != nil {
		return nil, fmt.Errorf("count credentials: %w", err)
	}
	return s, nil
}

func (r *Recorder) record(ctx context.Context, kind domain.EventKind, token domain.Token, details string) (domain.Event, error) {
	return r.appendEvent(ctx, kind, token, r.resolve(ctx, token), details)
}

func (r *Recorder) appendEvent(ctx context.Context, kind domain.EventKind, token domain.Token, corr domain.Correlation, details string) (domain.Event, error) {
	e, err := r.events.Append(ctx, domain.Event{
		Kind:     kind,
		Token:    token,
		Email:    corr.Email,
		Campaign: corr.CampaignName,
		Details:  details,
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("append %s event: %w", kind, err)
	}
	return e, nil
}

// resolve looks up token, returning an empty correlation when it is
// unknown. Storage failures are logged and also yield empty attribution so
// the hit itself is not lost.
func (r *Recorder) resolve(ctx context.Context, token domain.Token) domain.Correlation {
	if strings.TrimSpace(string(token)) == "" {
		return domain.Correlation{}
	}
	c, err := r.correlations.Lookup(ctx, token)
	switch {
	case err == nil:
		return *c
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn("engagement for unknown token", "token", logger.RedactToken(string(token)))
	default:
		logger.Error("correlation lookup failed", "token", logger.RedactToken(string(token)), "error", err)
	}
	return domain.Correlation{}
}
