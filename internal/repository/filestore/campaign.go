package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/distlock"
)

var campaignIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// CampaignStore keeps one JSON file per campaign. Every mutation touches a
// single file under a per-campaign lock and replaces it with an atomic
// rename, so concurrent launches of different campaigns never contend and
// never overwrite each other.
type CampaignStore struct {
	dir    string
	locker distlock.Locker
}

// NewCampaignStore opens the campaign directory, creating it if needed.
func NewCampaignStore(dir string, locker distlock.Locker) (*CampaignStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.StorageErr("create campaign directory", err)
	}
	if locker == nil {
		locker = distlock.NewLocalLocker()
	}
	return &CampaignStore{dir: dir, locker: locker}, nil
}

// Create persists a new campaign. The id must not exist yet.
func (s *CampaignStore) Create(ctx context.Context, c *domain.Campaign) error {
	if !campaignIDPattern.MatchString(c.ID) {
		return domain.Validationf("invalid campaign id %q", c.ID)
	}

	unlock, err := s.locker.Lock(ctx, lockKey(c.ID))
	if err != nil {
		return fmt.Errorf("lock campaign %s: %w", c.ID, err)
	}
	defer unlock()

	if _, err := os.Stat(s.path(c.ID)); err == nil {
		return domain.IntegrityErr("campaign id %s already exists", c.ID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return domain.StorageErr("stat campaign", err)
	}

	c.Version = 1
	return s.write(c)
}

// Get returns a campaign or domain.ErrNotFound.
func (s *CampaignStore) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !campaignIDPattern.MatchString(id) {
		return nil, domain.ErrNotFound
	}
	return s.read(s.path(id))
}

// List returns all campaigns, newest first.
func (s *CampaignStore) List(ctx context.Context) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.StorageErr("list campaigns", err)
	}

	out := make([]domain.Campaign, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		c, err := s.read(filepath.Join(s.dir, e.Name()))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RecordBatchResult adds successCount to the campaign's send counter and
// stamps LastSentAt. Updates to one campaign are linearized; the updated
// record is returned.
func (s *CampaignStore) RecordBatchResult(ctx context.Context, id string, successCount int, at time.Time) (*domain.Campaign, error) {
	if successCount < 0 {
		return nil, domain.Validationf("negative success count %d", successCount)
	}
	if !campaignIDPattern.MatchString(id) {
		return nil, domain.ErrNotFound
	}

	unlock, err := s.locker.Lock(ctx, lockKey(id))
	if err != nil {
		return nil, fmt.Errorf("lock campaign %s: %w", id, err)
	}
	defer unlock()

	c, err := s.read(s.path(id))
	if err != nil {
		return nil, err
	}

	at = at.UTC()
	c.TotalEmailsSent += successCount
	c.LastSentAt = &at
	c.Version++

	if err := s.write(c); err != nil {
		return nil, err
	}
	return c, nil
}

func lockKey(id string) string { return "campaign:" + id }

func (s *CampaignStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *CampaignStore) read(path string) (*domain.Campaign, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageErr("read campaign", err)
	}

	var c domain.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, domain.IntegrityErr("campaign file %s: %v", filepath.Base(path), err)
	}
	if c.ID == "" || filepath.Base(path) != c.ID+".json" {
		return nil, domain.IntegrityErr("campaign file %s holds id %q", filepath.Base(path), c.ID)
	}
	return &c, nil
}

func (s *CampaignStore) write(c *domain.Campaign) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode campaign: %w", err)
	}
	if err := writeFileAtomic(s.path(c.ID), data); err != nil {
		return domain.StorageErr("write campaign", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory,
// fsyncs it, and renames it over path. Readers see the old or the new
// content, never a mix.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}

	// Persist the rename itself.
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
