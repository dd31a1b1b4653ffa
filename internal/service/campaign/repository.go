package campaign

import (
	"context"
	"time"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns all campaigns ordered by created_at DESC.
	List(ctx context.Context) ([]domain.Campaign, error)

	// Create inserts a new campaign with a caller-assigned ID.
	Create(ctx context.Context, c *domain.Campaign) error

	// RecordBatchResult atomically adds successCount to the send counter
	// and sets last_sent_at. Updates to the same id are linearized.
	RecordBatchResult(ctx context.Context, id string, successCount int, at time.Time) (*domain.Campaign, error)
}
