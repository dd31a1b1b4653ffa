// Package sending defines the contract between the dispatch orchestrator and
// the messaging collaborator that delivers lure messages.
//
// The orchestrator never builds message bodies. It hands a Messenger the
// recipient and the three callback links; the Messenger renders and
// transmits. internal/mailing provides the production implementation.
package sending

import (
	"context"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// Messenger delivers one lure message in a single attempt. A delivery
// failure is returned as *domain.DeliveryError; callers do not retry.
// Implementations must be safe for concurrent use and must honour ctx
// cancellation so a per-recipient timeout bounds the call.
type Messenger interface {
	Send(ctx context.Context, msg domain.LureMessage) error
}

// LinkBuilder derives the callback URLs embedded in a lure from its token.
type LinkBuilder interface {
	Links(token domain.Token) domain.LureLinks
}

// MessengerFunc adapts a function to the Messenger interface.
type MessengerFunc func(ctx context.Context, msg domain.LureMessage) error

// Send calls f.
func (f MessengerFunc) Send(ctx context.Context, msg domain.LureMessage) error {
	return f(ctx, msg)
}
