// Package export writes report snapshots of the event and credential logs
// as semicolon-delimited CSV, the layout operators already load into their
// spreadsheets, and ships them to a local directory or an S3 bucket.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// Delimiter separates CSV fields.
const Delimiter = ';'

// TimestampLayout is ISO 8601 without zone, always in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var (
	eventHeader      = []string{"timestamp", "event", "hash_id", "email", "campaign", "details"}
	credentialHeader = []string{"timestamp", "hash_id", "email", "campaign", "username", "password"}
)

// WriteEvents writes events as CSV with a header row.
func WriteEvents(w io.Writer, events []domain.Event) error {
	cw := newWriter(w)
	if err := cw.Write(eventHeader); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write([]string{
			formatTime(e.Timestamp),
			string(e.Kind),
			string(e.Token),
			e.Email,
			e.Campaign,
			e.Details,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCredentials writes credential records as CSV with a header row.
func WriteCredentials(w io.Writer, records []domain.CredentialRecord) error {
	cw := newWriter(w)
	if err := cw.Write(credentialHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{
			formatTime(r.Timestamp),
			string(r.Token),
			r.Email,
			r.Campaign,
			r.Username,
			r.Password,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	cw.UseCRLF = true
	return cw
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
