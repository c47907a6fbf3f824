// Package kafka forwards committed claim events to a Kafka topic. Messages
// are keyed by claim id so one claim's events stay ordered on a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/event"
)

// Config holds producer settings
type Config struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
}

// MessageWriter is the part of kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a producer that waits for all in-sync replicas
func NewWriter(cfg Config) *kafka.Writer {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        backoff,
		WriteBackoffMax:        backoff * 10,
	}
}

// Publisher implements port.EventPublisher
type Publisher struct {
	writer MessageWriter
	logger *zap.Logger
}

var _ port.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher over writer
func NewPublisher(writer MessageWriter, logger *zap.Logger) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

// Publish writes evt as JSON with its type and correlation id as headers
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.ClaimID),
		Value: data,
		Time:  evt.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "correlation_id", Value: []byte(evt.CorrelationID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to send Kafka message",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("claim_id", evt.ClaimID),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Kafka message sent",
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type.String()))
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
