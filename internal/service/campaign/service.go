package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// Service implements campaign business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns all campaigns, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new campaign. Nothing is written when
// validation fails.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	recipients := ParseRecipients(input.Recipients)
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	c := &domain.Campaign{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Recipients:  recipients,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	logger.Info("campaign created", "campaign_id", c.ID, "name", c.Name, "recipient_count", len(recipients))
	return c, nil
}

// RecordBatchResult applies a completed batch to the campaign counters.
func (s *Service) RecordBatchResult(ctx context.Context, id string, successCount int) (*domain.Campaign, error) {
	c, err := s.repo.RecordBatchResult(ctx, id, successCount, s.now())
	if err != nil {
		return nil, fmt.Errorf("record batch result for %s: %w", id, err)
	}
	return c, nil
}

// CreateInput holds the fields for creating a new campaign. Recipients is
// the raw operator text; see ParseRecipients.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Recipients  string `json:"recipients"`
}
