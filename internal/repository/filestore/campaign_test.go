package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/distlock"
)

func newCampaignStore(t *testing.T) *CampaignStore {
	t.Helper()
	s, err := NewCampaignStore(filepath.Join(t.TempDir(), campaignsDir), distlock.NewLocalLocker())
	require.NoError(t, err)
	return s
}

func createCampaign(t *testing.T, s *CampaignStore, name string, created time.Time) *domain.Campaign {
	t.Helper()
	c := &domain.Campaign{
		ID:         uuid.New().String(),
		Name:       name,
		Recipients: []string{"a@example.com", "b@example.com"},
		CreatedAt:  created,
	}
	require.NoError(t, s.Create(context.Background(), c))
	return c
}

func TestCampaignCreateGet(t *testing.T) {
	s := newCampaignStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := createCampaign(t, s, "Phish A", created)

	got, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phish A", got.Name)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.Recipients)
	assert.Nil(t, got.LastSentAt)
	assert.Zero(t, got.TotalEmailsSent)
	assert.Equal(t, 1, got.Version)
}

func TestCampaignCreateDuplicateID(t *testing.T) {
	s := newCampaignStore(t)
	c := createCampaign(t, s, "A", time.Now())

	err := s.Create(context.Background(), &domain.Campaign{ID: c.ID, Name: "B"})
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestCampaignGetNotFound(t *testing.T) {
	s := newCampaignStore(t)
	_, err := s.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Get(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCampaignListNewestFirst(t *testing.T) {
	s := newCampaignStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	createCampaign(t, s, "oldest", base)
	createCampaign(t, s, "newest", base.Add(2*time.Hour))
	createCampaign(t, s, "middle", base.Add(time.Hour))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "newest", list[0].Name)
	assert.Equal(t, "middle", list[1].Name)
	assert.Equal(t, "oldest", list[2].Name)
}

func TestCampaignCorruptFile(t *testing.T) {
	s := newCampaignStore(t)
	id := uuid.New().String()
	require.NoError(t, os.WriteFile(s.path(id), []byte("{broken"), 0o644))

	_, err := s.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestRecordBatchResult(t *testing.T) {
	s := newCampaignStore(t)
	c := createCampaign(t, s, "A", time.Now())
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	updated, err := s.RecordBatchResult(context.Background(), c.ID, 7, at)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.TotalEmailsSent)
	require.NotNil(t, updated.LastSentAt)
	assert.True(t, at.Equal(*updated.LastSentAt))
	assert.Equal(t, 2, updated.Version)

	_, err = s.RecordBatchResult(context.Background(), c.ID, -1, at)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.RecordBatchResult(context.Background(), "missing", 1, at)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordBatchResultConcurrentCampaigns(t *testing.T) {
	s := newCampaignStore(t)
	a := createCampaign(t, s, "A", time.Now())
	b := createCampaign(t, s, "B", time.Now())

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.RecordBatchResult(context.Background(), a.ID, 3, time.Now())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.RecordBatchResult(context.Background(), b.ID, 5, time.Now())
			assert.NoError(t, err)
		}()
	}
	// A concurrent create must not clobber either counter.
	createCampaign(t, s, "C", time.Now())
	wg.Wait()

	gotA, err := s.Get(context.Background(), a.ID)
	require.NoError(t, err)
	gotB, err := s.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3*rounds, gotA.TotalEmailsSent)
	assert.Equal(t, 5*rounds, gotB.TotalEmailsSent)
	assert.Equal(t, rounds+1, gotA.Version)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
