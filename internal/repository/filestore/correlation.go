package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
)

// CorrelationStore maps tokens to recipients. Records are appended to a
// JSON-lines file and indexed in memory, so a lookup observes every
// registration that returned before it.
type CorrelationStore struct {
	mu    sync.RWMutex
	log   *appendlog.File
	index map[domain.Token]domain.Correlation
}

// NewCorrelationStore opens the correlation log at path and rebuilds the
// index. A duplicate or undecodable record makes the store refuse to open.
func NewCorrelationStore(path string, opts ...appendlog.Option) (*CorrelationStore, error) {
	s := &CorrelationStore{index: make(map[domain.Token]domain.Correlation)}

	replay := func(line []byte) error {
		var c domain.Correlation
		if err := json.Unmarshal(line, &c); err != nil {
			return err
		}
		if c.Token == "" {
			return fmt.Errorf("record without token")
		}
		if _, dup := s.index[c.Token]; dup {
			return fmt.Errorf("token %s registered twice", c.Token)
		}
		s.index[c.Token] = c
		return nil
	}

	log, err := appendlog.Open(path, replay, opts...)
	if err != nil {
		if errors.Is(err, appendlog.ErrCorrupt) {
			return nil, domain.IntegrityErr("correlation store %s: %v", path, err)
		}
		return nil, domain.StorageErr("open correlation store", err)
	}
	s.log = log
	return s, nil
}

// Register inserts a new correlation. Returns domain.ErrDuplicateToken if
// the token is already known.
func (s *CorrelationStore) Register(ctx context.Context, c domain.Correlation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Token == "" {
		return domain.Validationf("token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[c.Token]; exists {
		return fmt.Errorf("register %s: %w", c.Token, domain.ErrDuplicateToken)
	}

	if _, err := s.log.Append(func(int64) ([]byte, error) {
		return json.Marshal(c)
	}); err != nil {
		return domain.StorageErr("register correlation", err)
	}
	s.index[c.Token] = c
	return nil
}

// Lookup returns the correlation for token, or domain.ErrNotFound.
func (s *CorrelationStore) Lookup(_ context.Context, token domain.Token) (*domain.Correlation, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}

	s.mu.RLock()
	c, ok := s.index[token]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// Len returns the number of registered tokens.
func (s *CorrelationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Close closes the underlying log.
func (s *CorrelationStore) Close() error { return s.log.Close() }
