package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// EventPublisher mirrors recorded events to an external consumer. The
// event log stays the source of truth; publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event)
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends each recorded event as a JSON message to an SQS queue
// so a SIEM or awareness platform can follow the funnel live.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewSQSPublisher creates a publisher for queueURL.
func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, timeout: 5 * time.Second}
}

// Publish sends e in the background so the tracking response is never
// delayed by the queue.
func (p *SQSPublisher) Publish(_ context.Context, e domain.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		logger.Error("marshal tracking event", "error", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			logger.Error("publishing event to SQS", "event", string(e.Kind), "error", err)
		}
	}()
}

// Wait blocks until in-flight publishes finish. Call it during shutdown.
func (p *SQSPublisher) Wait() {
	p.wg.Wait()
}
