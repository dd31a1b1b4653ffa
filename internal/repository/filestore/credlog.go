package filestore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
)

// CredentialLog is the append-only log of captured credentials. It lives in
// its own file so it can be rotated or redacted independently of events.
type CredentialLog struct {
	log *appendlog.File
	now func() time.Time
}

// NewCredentialLog opens the credential log at path.
func NewCredentialLog(path string, opts ...appendlog.Option) (*CredentialLog, error) {
	log, err := openRecordLog[domain.CredentialRecord](path, "credential log", opts...)
	if err != nil {
		return nil, err
	}
	return &CredentialLog{log: log, now: time.Now}, nil
}

// Append stores r as given, assigning its sequence number and, when unset,
// its timestamp.
func (l *CredentialLog) Append(ctx context.Context, r domain.CredentialRecord) (domain.CredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.CredentialRecord{}, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = l.now().UTC()
	}

	if _, err := l.log.Append(func(seq int64) ([]byte, error) {
		r.Seq = seq
		return json.Marshal(r)
	}); err != nil {
		return domain.CredentialRecord{}, domain.StorageErr("append credentials", err)
	}
	return r, nil
}

// List returns a snapshot of all records, newest first.
func (l *CredentialLog) List(ctx context.Context) ([]domain.CredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := readRecords[domain.CredentialRecord](l.log)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].Seq > records[j].Seq
	})
	return records, nil
}

// Count returns the number of stored records.
func (l *CredentialLog) Count(context.Context) (int, error) {
	return int(l.log.Len()), nil
}

// Close closes the underlying log.
func (l *CredentialLog) Close() error { return l.log.Close() }
