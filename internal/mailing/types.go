package mailing

import "context"

// Envelope is a fully rendered message ready for a transport.
type Envelope struct {
	FromEmail string
	FromName  string
	To        string
	Subject   string
	HTML      string
}

// Transport submits an envelope to a mail system in a single attempt.
// Implementations must be safe for concurrent use.
type Transport interface {
	Deliver(ctx context.Context, env Envelope) error
	Name() string
}

// Templates holds the Liquid sources for the lure and its landing page.
//
// Lure variables: subject, landing_url, download_url, pixel_url,
// campaign_name, recipient. Landing variables: token, login_url.
type Templates struct {
	Subject string
	HTML    string
	Landing string
}
