package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
)

// EventLog is the append-only engagement event log.
type EventLog struct {
	log *appendlog.File
	now func() time.Time
}

// NewEventLog opens the event log at path.
func NewEventLog(path string, opts ...appendlog.Option) (*EventLog, error) {
	log, err := openRecordLog[domain.Event](path, "event log", opts...)
	if err != nil {
		return nil, err
	}
	return &EventLog{log: log, now: time.Now}, nil
}

// Append stores e, assigning its sequence number and, when unset, its
// timestamp. The stored event is returned.
func (l *EventLog) Append(ctx context.Context, e domain.Event) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.Event{}, err
	}
	if !e.Kind.Valid() {
		return domain.Event{}, domain.Validationf("unknown event kind %q", e.Kind)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}

	if _, err := l.log.Append(func(seq int64) ([]byte, error) {
		e.Seq = seq
		return json.Marshal(e)
	}); err != nil {
		return domain.Event{}, domain.StorageErr("append event", err)
	}
	return e, nil
}

// List returns a snapshot of all events, newest first. Ties on timestamp
// are broken by append order, later appends first.
func (l *EventLog) List(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events, err := readRecords[domain.Event](l.log)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].Seq > events[j].Seq
	})
	return events, nil
}

// Count returns the number of stored events.
func (l *EventLog) Count(context.Context) (int, error) {
	return int(l.log.Len()), nil
}

// Close closes the underlying log.
func (l *EventLog) Close() error { return l.log.Close() }

// openRecordLog opens an append-only log whose lines decode as T.
func openRecordLog[T any](path, name string, opts ...appendlog.Option) (*appendlog.File, error) {
	replay := func(line []byte) error {
		var v T
		return json.Unmarshal(line, &v)
	}
	log, err := appendlog.Open(path, replay, opts...)
	if err != nil {
		if errors.Is(err, appendlog.ErrCorrupt) {
			return nil, domain.IntegrityErr("%s %s: %v", name, path, err)
		}
		return nil, domain.StorageErr("open "+name, err)
	}
	return log, nil
}

// readRecords decodes a snapshot of log in append order.
func readRecords[T any](log *appendlog.File) ([]T, error) {
	out := make([]T, 0, log.Len())
	err := log.Snapshot(func(line []byte) error {
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		if errors.Is(err, appendlog.ErrCorrupt) {
			return nil, domain.IntegrityErr("%s: %v", log.Path(), err)
		}
		return nil, domain.StorageErr("read "+log.Path(), err)
	}
	return out, nil
}
