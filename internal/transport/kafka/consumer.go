// Package kafka consumes article events from a Kafka topic and routes
// failed payloads to a dead letter queue.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/docdex/internal/logger"
)

// Handler processes one message payload. A non-nil error parks the
// payload on the dead letter queue.
type Handler func(ctx context.Context, payload []byte) error

// fetcher is the consumer surface of kafka.Reader.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publisher is the producer surface of kafka.Writer.
type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	fetchBackoffMin = 2 * time.Second
	fetchBackoffMax = 30 * time.Second
	dlqAttempts     = 5
)

// Config holds connection parameters for the consumer group.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	DLQTopic string
}

// Consumer reads article events and hands each payload to the handler.
// Offsets are committed manually: a message is committed only after the
// handler succeeds or its payload lands on the DLQ, so a crash replays
// it instead of losing it.
type Consumer struct {
	reader  fetcher
	dlq     publisher
	handler Handler
	logger  *zap.Logger

	// Retry pacing. Seeded by NewConsumer.
	fetchBackoff time.Duration
	dlqBackoff   time.Duration
}

// NewConsumer creates a consumer group reader and a DLQ producer.
func NewConsumer(cfg Config, handler Handler, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	dlqTopic := cfg.DLQTopic
	if dlqTopic == "" {
		dlqTopic = cfg.Topic + ".dlq"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	dlq := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.Brokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})

	return &Consumer{
		reader:       reader,
		dlq:          dlq,
		handler:      handler,
		logger:       logger,
		fetchBackoff: fetchBackoffMin,
		dlqBackoff:   time.Second,
	}, nil
}

// Run consumes until ctx is canceled. Fetch errors back off
// exponentially so a broker outage does not spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.fetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetch message", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			backoff *= 2
			if backoff > fetchBackoffMax {
				backoff = fetchBackoffMax
			}
			continue
		}
		backoff = c.fetchBackoff

		// The handler logs through the context, so its lines carry the
		// message coordinates without threading them as arguments.
		msgCtx := logpkg.With(ctx,
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		if err := c.handler(msgCtx, msg.Value); err != nil {
			c.logger.Warn("handle message",
				zap.Error(err),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			if !c.park(ctx, msg, err) {
				// Offset stays uncommitted; the group replays the
				// message after restart.
				continue
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit message", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

// park writes the failed payload to the dead letter queue, tagged with
// the source partition, offset and error. Returns false when every
// attempt failed.
func (c *Consumer) park(ctx context.Context, msg kafka.Message, cause error) bool {
	parked := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := 0; attempt < dlqAttempts; attempt++ {
		err := c.dlq.WriteMessages(ctx, parked)
		if err == nil {
			c.logger.Info("message parked on dlq",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return true
		}
		wait := time.Duration(1<<attempt) * c.dlqBackoff
		c.logger.Warn("dlq write failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
	}

	c.logger.Error("dlq write exhausted retries, offset left uncommitted",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	return false
}

// Close releases the reader and the DLQ producer.
func (c *Consumer) Close() error {
	return errors.Join(c.reader.Close(), c.dlq.Close())
}
