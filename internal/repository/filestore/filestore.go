// Package filestore implements the durable stores on plain files.
//
// Layout under the data directory:
//
//	hash_mapping.jsonl   token correlations (append-only)
//	events.jsonl         engagement events (append-only)
//	credentials.jsonl    captured credentials (append-only)
//	campaigns/<id>.json  one file per campaign, replaced atomically
//	.lock                held by the one process writing the directory
//
// A data directory has a single writer. Open takes an exclusive lock on it
// and a second Open fails with ErrDataDirLocked. Readers use
// OpenLogsReadOnly and need no lock.
//
// Each store guards itself; none holds its lock while touching another.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
	"github.com/ignite/phishing-simulator/internal/pkg/distlock"
)

const (
	correlationFile = "hash_mapping.jsonl"
	eventsFile      = "events.jsonl"
	credentialsFile = "credentials.jsonl"
	campaignsDir    = "campaigns"
	lockFile        = ".lock"
)

// Stores bundles the four stores opened over one data directory.
type Stores struct {
	Correlations *CorrelationStore
	Events       *EventLog
	Credentials  *CredentialLog
	Campaigns    *CampaignStore

	lock *dirLock
}

// Open locks dataDir for this process and opens (creating if needed) every
// store under it. The lock is released by Close.
func Open(dataDir string, locker distlock.Locker, opts ...appendlog.Option) (*Stores, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	lock, err := lockDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	corr, err := NewCorrelationStore(filepath.Join(dataDir, correlationFile), opts...)
	if err != nil {
		lock.release()
		return nil, err
	}
	events, err := NewEventLog(filepath.Join(dataDir, eventsFile), opts...)
	if err != nil {
		corr.Close()
		lock.release()
		return nil, err
	}
	creds, err := NewCredentialLog(filepath.Join(dataDir, credentialsFile), opts...)
	if err != nil {
		corr.Close()
		events.Close()
		lock.release()
		return nil, err
	}
	campaigns, err := NewCampaignStore(filepath.Join(dataDir, campaignsDir), locker)
	if err != nil {
		corr.Close()
		events.Close()
		creds.Close()
		lock.release()
		return nil, err
	}

	return &Stores{
		Correlations: corr,
		Events:       events,
		Credentials:  creds,
		Campaigns:    campaigns,
		lock:         lock,
	}, nil
}

// Close closes the append-only logs and releases the data directory.
func (s *Stores) Close() error {
	return errors.Join(
		s.Correlations.Close(),
		s.Events.Close(),
		s.Credentials.Close(),
		s.lock.release(),
	)
}

// OpenLogsReadOnly opens the event and credential logs under dataDir for
// reading while a server may still be appending to them.
func OpenLogsReadOnly(dataDir string) (*EventLog, *CredentialLog, error) {
	events, err := NewEventLog(filepath.Join(dataDir, eventsFile), appendlog.ReadOnly())
	if err != nil {
		return nil, nil, err
	}
	creds, err := NewCredentialLog(filepath.Join(dataDir, credentialsFile), appendlog.ReadOnly())
	if err != nil {
		events.Close()
		return nil, nil, err
	}
	return events, creds, nil
}
