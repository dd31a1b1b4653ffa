package domain

import (
	"fmt"
	"strings"
	"time"
)

// Token is the opaque per-dispatch identifier embedded in every lure link.
// One token is issued per dispatch attempt, so the same recipient sent twice
// holds two distinct tokens.
type Token string

// EventKind enumerates the stages of the engagement funnel.
type EventKind string

const (
	EventEmailSent            EventKind = "email_sent"
	EventEmailOpened          EventKind = "email_opened"
	EventLinkClicked          EventKind = "link_clicked"
	EventAttachmentDownloaded EventKind = "attachment_downloaded"
	EventCredentialsSubmitted EventKind = "credentials_submitted"
)

// Valid reports whether k belongs to the closed event vocabulary.
func (k EventKind) Valid() bool {
	switch k {
	case EventEmailSent, EventEmailOpened, EventLinkClicked,
		EventAttachmentDownloaded, EventCredentialsSubmitted:
		return true
	}
	return false
}

// Correlation maps a token to the recipient and campaign it was issued for.
// Written once at dispatch time and never modified.
type Correlation struct {
	Token        Token     `json:"hash_id"`
	Email        string    `json:"email"`
	CampaignID   string    `json:"campaign_id,omitempty"` // empty for ad-hoc sends
	CampaignName string    `json:"campaign,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is a single engagement event. Email and Campaign are denormalized
// from the correlation at write time and are empty when the token was
// unknown.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"event"`
	Token     Token     `json:"hash_id"`
	Email     string    `json:"email"`
	Campaign  string    `json:"campaign"`
	Details   string    `json:"details"`
}

// CredentialRecord is a captured credential submission. Kept apart from
// Event so it can follow its own retention policy.
type CredentialRecord struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Token     Token     `json:"hash_id"`
	Email     string    `json:"email"`
	Campaign  string    `json:"campaign"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
}

// RequestMeta carries client information observed by a tracking endpoint.
type RequestMeta struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// String renders meta as the details text of an event.
func (m RequestMeta) String() string {
	var parts []string
	if m.IPAddress != "" {
		parts = append(parts, "ip="+m.IPAddress)
	}
	if m.UserAgent != "" {
		parts = append(parts, fmt.Sprintf("ua=%q", m.UserAgent))
	}
	return strings.Join(parts, " ")
}
