package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
)

func newCorrelationStore(t *testing.T) (*CorrelationStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), correlationFile)
	s, err := NewCorrelationStore(path, appendlog.WithoutSync())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCorrelationRegisterLookup(t *testing.T) {
	s, path := newCorrelationStore(t)
	ctx := context.Background()

	c := domain.Correlation{
		Token:        "0123456789abcdef0123456789abcdef",
		Email:        "alice@example.com",
		CampaignID:   "c-1",
		CampaignName: "Q3 awareness",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Register(ctx, c))

	got, err := s.Lookup(ctx, c.Token)
	require.NoError(t, err)
	assert.Equal(t, c, *got)

	// Survives a restart.
	require.NoError(t, s.Close())
	reopened, err := NewCorrelationStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.Lookup(ctx, c.Token)
	require.NoError(t, err)
	assert.Equal(t, c, *got)
}

func TestCorrelationDuplicateToken(t *testing.T) {
	s, _ := newCorrelationStore(t)
	ctx := context.Background()

	c := domain.Correlation{Token: "t1", Email: "a@example.com"}
	require.NoError(t, s.Register(ctx, c))

	err := s.Register(ctx, domain.Correlation{Token: "t1", Email: "b@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateToken))
	assert.True(t, errors.Is(err, domain.ErrIntegrity))

	got, err := s.Lookup(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email, "first registration must stand")
}

func TestCorrelationLookupUnknown(t *testing.T) {
	s, _ := newCorrelationStore(t)
	ctx := context.Background()

	_, err := s.Lookup(ctx, "never-registered")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Lookup(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorrelationConcurrentRegister(t *testing.T) {
	s, _ := newCorrelationStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Register(ctx, domain.Correlation{
				Token: domain.Token(fmt.Sprintf("tok-%03d", i)),
				Email: fmt.Sprintf("user%03d@example.com", i),
			}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, s.Len())
	for i := 0; i < 200; i++ {
		got, err := s.Lookup(ctx, domain.Token(fmt.Sprintf("tok-%03d", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("user%03d@example.com", i), got.Email)
	}
}

func TestCorrelationRefusesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), correlationFile)
	data := `{"hash_id":"t1","email":"a@example.com"}` + "\n" +
		`{"hash_id":"t1","email":"b@example.com"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, err := NewCorrelationStore(path)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}
