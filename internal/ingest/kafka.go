// Package ingest consumes identity events from external producers and
// feeds them into the reconciliation runner.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/jkleiven/rollcall/internal/models"
	"github.com/jkleiven/rollcall/internal/recon"
)

// Consumer reads JSON identity events from a Kafka topic. Delivery is
// at-least-once; duplicates are harmless because the debounce gate and
// the per-day state machine absorb them.
type Consumer struct {
	reader *kafka.Reader
	runner *recon.Runner
	logger *slog.Logger
}

// NewConsumer creates a consumer for the given brokers and topic.
func NewConsumer(brokers []string, topic, groupID string, runner *recon.Runner, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		runner: runner,
		logger: logger,
	}
}

// Run reads messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("kafka ingest: started", slog.String("topic", c.reader.Config().Topic))

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("kafka ingest: stopped")
				return nil
			}
			return err
		}

		var ev models.IdentityEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Warn("kafka ingest: bad message",
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()))
			continue
		}
		if ev.Identity == "" {
			c.logger.Warn("kafka ingest: empty identity", slog.Int64("offset", msg.Offset))
			continue
		}

		if err := c.runner.Submit(ev); err != nil {
			// Queue full; the event is dropped, the next recognition of
			// the same identity will retry.
			c.logger.Warn("kafka ingest: submit failed",
				slog.String("identity", ev.Identity),
				slog.String("error", err.Error()))
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
