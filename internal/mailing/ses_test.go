package mailing

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESTransportDeliver(t *testing.T) {
	fake := &fakeSES{}
	tr := &SESTransport{client: fake, configurationSet: "phish-sim"}

	err := tr.Deliver(context.Background(), Envelope{
		FromEmail: "it@corp.example",
		FromName:  "IT",
		To:        "bob@example.com",
		Subject:   "Verify",
		HTML:      "<p>hi</p>",
	})
	require.NoError(t, err)

	in := fake.input
	require.NotNil(t, in)
	assert.Equal(t, "IT <it@corp.example>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"bob@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Verify", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
	assert.Equal(t, "phish-sim", aws.ToString(in.ConfigurationSetName))
	assert.Equal(t, "ses", tr.Name())
}

func TestSESTransportError(t *testing.T) {
	tr := &SESTransport{client: &fakeSES{err: errors.New("throttled")}}
	err := tr.Deliver(context.Background(), Envelope{FromEmail: "a@b.c", To: "d@e.f"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
