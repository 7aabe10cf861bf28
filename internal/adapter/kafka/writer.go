package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/hazard-exposure-service/internal/config"
	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces exposure results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   16 << 20,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes serialized results to the sink topic in a single
// WriteMessages call. Results are keyed by request ID, so all results of one
// request land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.ExposureResult) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		out, err := domain.SerializeResult(events[i])
		if err != nil {
			return err
		}
		msgs[i] = toMessage(out)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("results published", "count", len(msgs))
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage converts an OutputEvent into a Kafka message. Headers are sorted
// by key.
func toMessage(out domain.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(out.Headers))
	for k := range out.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafkago.Header{Key: k, Value: []byte(out.Headers[k])}
	}
	return kafkago.Message{Key: out.Key, Value: out.Value, Headers: headers}
}
