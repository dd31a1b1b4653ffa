package dispatch

import (
	"context"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// TokenIssuer issues unique dispatch tokens.
type TokenIssuer interface {
	Issue() domain.Token
}

// CorrelationRegistrar persists the token to recipient mapping.
type CorrelationRegistrar interface {
	Register(ctx context.Context, c domain.Correlation) error
}

// EventAppender appends engagement events.
type EventAppender interface {
	Append(ctx context.Context, e domain.Event) (domain.Event, error)
}

// CampaignRepository is the campaign access the orchestrator needs.
// campaign.Service satisfies it and stamps the batch time itself.
type CampaignRepository interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	RecordBatchResult(ctx context.Context, id string, successCount int) (*domain.Campaign, error)
}
