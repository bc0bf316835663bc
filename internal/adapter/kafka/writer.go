// Package kafka publishes completed analysis results to a Kafka topic, one
// message per unit.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/evaqua/glacier-risk-core/internal/config"
	"github.com/evaqua/glacier-risk-core/internal/domain"
)

// Writer produces per-unit risk messages to the results topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishResult serializes every unit of a completed run and publishes them
// in a single WriteMessages call. The unit ID keys the message, so a compacted
// topic retains the latest assessment per unit.
func (w *Writer) PublishResult(ctx context.Context, result *domain.Result) error {
	if len(result.HRUs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(result.HRUs))
	for i := range result.HRUs {
		msg, err := serializeToMessage(result, &result.HRUs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish result %s: %w", result.RunID, err)
	}
	w.logger.Info("result published", "run_id", result.RunID, "units", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one unit into a Kafka message.
func serializeToMessage(result *domain.Result, h *domain.HRU) (kafkago.Message, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize unit %s: %w", h.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(h.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(result.RunID)},
			{Key: "risk_class", Value: []byte(h.Risk.Class)},
			{Key: "completed_at", Value: []byte(result.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
