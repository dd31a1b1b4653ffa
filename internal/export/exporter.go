package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// Source reads the logs to export.
type Source interface {
	Events(ctx context.Context) ([]domain.Event, error)
	Credentials(ctx context.Context) ([]domain.CredentialRecord, error)
}

// Exporter snapshots both logs into a Sink.
type Exporter struct {
	source Source
	sink   Sink
	now    func() time.Time
}

// NewExporter creates an exporter.
func NewExporter(source Source, sink Sink) *Exporter {
	return &Exporter{source: source, sink: sink, now: time.Now}
}

// Run writes events-<stamp>.csv and credentials-<stamp>.csv and returns
// their locations.
func (e *Exporter) Run(ctx context.Context) ([]string, error) {
	stamp := e.now().UTC().Format("20060102T150405Z")

	events, err := e.source.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteEvents(&buf, events); err != nil {
		return nil, fmt.Errorf("encoding events: %w", err)
	}
	eventsLoc, err := e.sink.Put(ctx, "events-"+stamp+".csv", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("storing events report: %w", err)
	}

	creds, err := e.source.Credentials(ctx)
	if err != nil {
		return []string{eventsLoc}, fmt.Errorf("reading credentials: %w", err)
	}
	buf.Reset()
	if err := WriteCredentials(&buf, creds); err != nil {
		return []string{eventsLoc}, fmt.Errorf("encoding credentials: %w", err)
	}
	credsLoc, err := e.sink.Put(ctx, "credentials-"+stamp+".csv", buf.Bytes())
	if err != nil {
		return []string{eventsLoc}, fmt.Errorf("storing credentials report: %w", err)
	}

	logger.Info("reports exported",
		"events", len(events), "credentials", len(creds),
		"events_report", eventsLoc, "credentials_report", credsLoc)
	return []string{eventsLoc, credsLoc}, nil
}
