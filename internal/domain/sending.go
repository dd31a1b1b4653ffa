package domain

import "time"

// LureLinks are the three callback URLs a lure message embeds. All of them
// carry the dispatch token.
type LureLinks struct {
	PixelURL    string `json:"pixel_url"`
	LandingURL  string `json:"landing_url"`
	DownloadURL string `json:"download_url"`
}

// LureMessage is handed to a messenger for delivery to one recipient.
type LureMessage struct {
	Token        Token     `json:"hash_id"`
	To           string    `json:"to"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Links        LureLinks `json:"links"`
}

// Outcome is the result of dispatching to a single recipient.
type Outcome struct {
	Token   Token     `json:"hash_id,omitempty"`
	Email   string    `json:"email"`
	Success bool      `json:"success"`
	SentAt  time.Time `json:"sent_at,omitempty"`
	Err     error     `json:"-"`
}

// RecipientError names a recipient whose dispatch failed in a batch.
type RecipientError struct {
	Email  string `json:"email"`
	Detail string `json:"detail"`
	Err    error  `json:"-"`
}

// BatchResult summarizes a campaign launch.
type BatchResult struct {
	CampaignID   string           `json:"campaign_id"`
	SuccessCount int              `json:"success_count"`
	Errors       []RecipientError `json:"errors"`
}
