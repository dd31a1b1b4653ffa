package domain

import "time"

// Campaign is a named recipient list plus its aggregate send counters.
// Recipients are fixed at creation; TotalEmailsSent and LastSentAt change
// only when a dispatch batch completes.
type Campaign struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Recipients      []string   `json:"recipients"`
	CreatedAt       time.Time  `json:"created_at"`
	LastSentAt      *time.Time `json:"last_sent_at"`
	TotalEmailsSent int        `json:"total_emails_sent"`

	// Version increases on every persisted change to the record.
	Version int `json:"version"`
}

// Summary is the operator dashboard snapshot.
type Summary struct {
	RecentCampaigns  []Campaign `json:"recent_campaigns"`
	CampaignCount    int        `json:"campaign_count"`
	EventsCount      int        `json:"events_count"`
	CredentialsCount int        `json:"credentials_count"`
}
