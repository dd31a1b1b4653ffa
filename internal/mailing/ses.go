package mailing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// sesAPI is the slice of the SES v2 client the transport uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends mail through AWS SES using the SDK v2.
type SESTransport struct {
	client           sesAPI
	configurationSet string
}

// NewSESTransport builds an SES client. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewSESTransport(ctx context.Context, region, accessKey, secretKey, configurationSet string) (*SESTransport, error) {
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return &SESTransport{client: sesv2.NewFromConfig(cfg), configurationSet: configurationSet}, nil
}

// Name identifies the transport in logs.
func (t *SESTransport) Name() string { return "ses" }

// Deliver sends env with a single SendEmail call.
func (t *SESTransport) Deliver(ctx context.Context, env Envelope) error {
	from := env.FromEmail
	if env.FromName != "" {
		from = fmt.Sprintf("%s <%s>", env.FromName, env.FromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{env.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(env.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(env.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if t.configurationSet != "" {
		input.ConfigurationSetName = aws.String(t.configurationSet)
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("SES send: %w", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	logger.Debug("SES accepted message", "email", env.To, "message_id", messageID)
	return nil
}
