// Package queue decouples usage accounting from the request path. The
// gateway publishes records and a background worker drains them into the
// repository; a slow database never slows a chat response.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/maildash/assistant-gateway/internal/cost"
)

type Queue interface {
	Publish(ctx context.Context, record cost.UsageRecord) error
	Receive(ctx context.Context, max int) ([]cost.UsageRecord, error)
}

type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSQueue(ctx context.Context, region, queueURL string) (*SQSQueue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSQueue{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

func NewSQSQueueWithConfig(cfg aws.Config, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

func (q *SQSQueue) Publish(ctx context.Context, record cost.UsageRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"Provider": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Provider),
			},
		},
	}

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int) ([]cost.UsageRecord, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     20,
	}

	result, err := q.client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	records := make([]cost.UsageRecord, 0, len(result.Messages))
	for _, msg := range result.Messages {
		var record cost.UsageRecord
		if err := json.Unmarshal([]byte(*msg.Body), &record); err != nil {
			slog.Warn("dropping malformed usage message", "error", err)
			continue
		}
		records = append(records, record)

		if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(q.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			slog.Warn("delete message failed", "error", err)
		}
	}
	return records, nil
}

type InMemoryQueue struct {
	mu      sync.Mutex
	records []cost.UsageRecord
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{}
}

func (q *InMemoryQueue) Publish(ctx context.Context, record cost.UsageRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, record)
	return nil
}

func (q *InMemoryQueue) Receive(ctx context.Context, max int) ([]cost.UsageRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := max
	if count > len(q.records) {
		count = len(q.records)
	}

	result := make([]cost.UsageRecord, count)
	copy(result, q.records[:count])
	q.records = q.records[count:]
	return result, nil
}

func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}
