package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
	"github.com/ignite/phishing-simulator/internal/service/sending"
)

const (
	DefaultConcurrency = 8
	DefaultSendTimeout = 30 * time.Second
)

// Config tunes batch fan-out.
type Config struct {
	// Concurrency bounds how many recipients are dispatched in parallel.
	Concurrency int
	// SendTimeout bounds a single Messenger.Send call.
	SendTimeout time.Duration
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	Tokens       TokenIssuer
	Correlations CorrelationRegistrar
	Events       EventAppender
	Campaigns    CampaignRepository
	Messenger    sending.Messenger
	Links        sending.LinkBuilder
}

// Orchestrator coordinates token issue, correlation, delivery and event
// logging. It is safe for concurrent use; two campaigns may launch at the
// same time.
type Orchestrator struct {
	deps        Deps
	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

// NewOrchestrator creates an orchestrator. Zero Config fields take defaults.
func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Orchestrator{
		deps:        deps,
		concurrency: cfg.Concurrency,
		timeout:     cfg.SendTimeout,
		now:         time.Now,
	}
}

// DispatchOne sends one lure to email. campaign is nil for ad-hoc sends.
//
// The correlation is registered before anything is sent; if that fails the
// message is never handed to the Messenger. A delivery failure leaves the
// correlation in place but appends no email_sent event.
func (o *Orchestrator) DispatchOne(ctx context.Context, email string, campaign *domain.Campaign) domain.Outcome {
	out := domain.Outcome{Email: email}
	token := o.deps.Tokens.Issue()
	out.Token = token

	var campaignID, campaignName string
	if campaign != nil {
		campaignID, campaignName = campaign.ID, campaign.Name
	}

	err := o.deps.Correlations.Register(ctx, domain.Correlation{
		Token:        token,
		Email:        email,
		CampaignID:   campaignID,
		CampaignName: campaignName,
		CreatedAt:    o.now().UTC(),
	})
	if err != nil {
		out.Err = fmt.Errorf("register token: %w", err)
		logger.Error("dispatch aborted before send",
			"email", email, "campaign_id", campaignID, "error", err)
		return out
	}

	sendCtx, cancel := context.WithTimeout(ctx, o.timeout)
	err = o.deps.Messenger.Send(sendCtx, domain.LureMessage{
		Token:        token,
		To:           email,
		CampaignName: campaignName,
		Links:        o.deps.Links.Links(token),
	})
	cancel()
	if err != nil {
		var de *domain.DeliveryError
		if !errors.As(err, &de) {
			err = &domain.DeliveryError{Recipient: email, Detail: err.Error(), Err: err}
		}
		out.Err = err
		return out
	}

	out.Success = true
	out.SentAt = o.now().UTC()

	// The message already left: record it even if the caller has gone, and
	// count the send even if the event is lost.
	_, err = o.deps.Events.Append(context.WithoutCancel(ctx), domain.Event{
		Timestamp: out.SentAt,
		Kind:      domain.EventEmailSent,
		Token:     token,
		Email:     email,
		Campaign:  campaignName,
	})
	if err != nil {
		logger.Error("email_sent event not recorded",
			"token", logger.RedactToken(string(token)), "email", email, "error", err)
	}
	return out
}

// DispatchAll launches a campaign to every recipient. Per-recipient
// failures are collected in recipient order and never abort the batch.
// The campaign counter is updated exactly once, after all recipients have
// been attempted.
func (o *Orchestrator) DispatchAll(ctx context.Context, campaignID string) (*domain.BatchResult, error) {
	campaign, err := o.deps.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	start := time.Now()
	outcomes := make([]domain.Outcome, len(campaign.Recipients))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, email := range campaign.Recipients {
		g.Go(func() error {
			outcomes[i] = o.DispatchOne(ctx, email, campaign)
			return nil
		})
	}
	g.Wait()

	result := &domain.BatchResult{CampaignID: campaign.ID, Errors: []domain.RecipientError{}}
	for _, out := range outcomes {
		if out.Success {
			result.SuccessCount++
			continue
		}
		result.Errors = append(result.Errors, recipientError(out))
	}

	// Use a context detached from cancellation so the counter reflects the
	// sends that already happened even if the caller went away.
	recordCtx := context.WithoutCancel(ctx)
	if _, err := o.deps.Campaigns.RecordBatchResult(recordCtx, campaign.ID, result.SuccessCount); err != nil {
		logger.Error("campaign counter update failed",
			"campaign_id", campaign.ID, "success_count", result.SuccessCount, "error", err)
		return result, err
	}

	logger.Info("campaign dispatched",
		"campaign_id", campaign.ID,
		"recipient_count", len(campaign.Recipients),
		"success_count", result.SuccessCount,
		"failure_count", len(result.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// SendAdHoc dispatches a single lure outside any campaign.
func (o *Orchestrator) SendAdHoc(ctx context.Context, email string) (domain.Outcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Outcome{}, ErrEmailRequired
	}
	out := o.DispatchOne(ctx, email, nil)
	return out, out.Err
}

func recipientError(out domain.Outcome) domain.RecipientError {
	re := domain.RecipientError{Email: out.Email, Err: out.Err}
	var de *domain.DeliveryError
	switch {
	case errors.As(out.Err, &de):
		re.Detail = de.Detail
	case out.Err != nil:
		re.Detail = out.Err.Error()
	default:
		re.Detail = "unknown failure"
	}
	return re
}
