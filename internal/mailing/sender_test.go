package mailing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishing-simulator/internal/domain"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []Envelope
	err  error
}

func (r *recordingTransport) Name() string { return "recording" }

func (r *recordingTransport) Deliver(ctx context.Context, env Envelope) error {
	if r.err != nil {
		return r.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, env)
	return nil
}

func TestMessengerSend(t *testing.T) {
	r, err := NewRenderer(DefaultTemplates())
	require.NoError(t, err)
	tr := &recordingTransport{}
	m := NewMessenger(r, tr, "it-support@corp.example", "IT Support")

	require.NoError(t, m.Send(context.Background(), testLure()))

	require.Len(t, tr.sent, 1)
	env := tr.sent[0]
	assert.Equal(t, "it-support@corp.example", env.FromEmail)
	assert.Equal(t, "IT Support", env.FromName)
	assert.Equal(t, "alice@example.com", env.To)
	assert.Contains(t, env.HTML, "/phisingpixel?id=")
}

func TestMessengerWrapsTransportError(t *testing.T) {
	r, err := NewRenderer(DefaultTemplates())
	require.NoError(t, err)
	boom := errors.New("550 mailbox unavailable")
	m := NewMessenger(r, &recordingTransport{err: boom}, "a@b.c", "")

	err = m.Send(context.Background(), testLure())
	require.Error(t, err)

	var de *domain.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "alice@example.com", de.Recipient)
	assert.Contains(t, de.Detail, "550")
	assert.ErrorIs(t, err, boom)
}

func TestMessengerTimeoutIsDeliveryError(t *testing.T) {
	r, err := NewRenderer(DefaultTemplates())
	require.NoError(t, err)
	m := NewMessenger(r, &recordingTransport{}, "a@b.c", "")

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err = m.Send(ctx, testLure())
	var de *domain.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, de.Detail, "timed out")
}
