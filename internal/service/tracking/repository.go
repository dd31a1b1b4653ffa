package tracking

import (
	"context"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// CorrelationLookup resolves a token. It returns domain.ErrNotFound for
// unknown tokens.
type CorrelationLookup interface {
	Lookup(ctx context.Context, token domain.Token) (*domain.Correlation, error)
}

// EventRepository is the append-only engagement event log.
type EventRepository interface {
	Append(ctx context.Context, e domain.Event) (domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Count(ctx context.Context) (int, error)
}

// CredentialRepository is the append-only credential capture log.
type CredentialRepository interface {
	Append(ctx context.Context, r domain.CredentialRecord) (domain.CredentialRecord, error)
	List(ctx context.Context) ([]domain.CredentialRecord, error)
	Count(ctx context.Context) (int, error)
}

// CampaignLister lists campaigns newest first.
type CampaignLister interface {
	List(ctx context.Context) ([]domain.Campaign, error)
}
