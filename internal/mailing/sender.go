package mailing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// Messenger renders a lure and submits it through a Transport. It is the
// production sending.Messenger.
type Messenger struct {
	renderer  *Renderer
	transport Transport
	fromEmail string
	fromName  string
}

// NewMessenger wires a renderer to a transport.
func NewMessenger(renderer *Renderer, transport Transport, fromEmail, fromName string) *Messenger {
	return &Messenger{
		renderer:  renderer,
		transport: transport,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send renders and delivers msg once. Any failure, including a render
// error or ctx expiring, is reported as *domain.DeliveryError.
func (m *Messenger) Send(ctx context.Context, msg domain.LureMessage) error {
	rendered, err := m.renderer.RenderLure(msg)
	if err != nil {
		return &domain.DeliveryError{Recipient: msg.To, Detail: err.Error(), Err: err}
	}

	err = m.transport.Deliver(ctx, Envelope{
		FromEmail: m.fromEmail,
		FromName:  m.fromName,
		To:        msg.To,
		Subject:   rendered.Subject,
		HTML:      rendered.HTML,
	})
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out: %v", err)
		}
		logger.Warn("lure delivery failed",
			"transport", m.transport.Name(), "email", msg.To, "error", detail)
		return &domain.DeliveryError{Recipient: msg.To, Detail: detail, Err: err}
	}

	logger.Debug("lure delivered", "transport", m.transport.Name(), "email", msg.To)
	return nil
}
