package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/bills-enricher/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes one message per bill, keyed by bill id.
type Kafka struct {
	writer MessageWriter
	runID  string
}

// NewKafka creates a sink writing to topic on brokers.
func NewKafka(brokers []string, topic, runID string) *Kafka {
	return NewKafkaWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}, runID)
}

// NewKafkaWithWriter wraps an existing writer.
func NewKafkaWithWriter(w MessageWriter, runID string) *Kafka {
	return &Kafka{writer: w, runID: runID}
}

func (k *Kafka) Name() string { return "kafka" }

// Persist writes every bill in bill-id order as one batch.
func (k *Kafka) Persist(ctx context.Context, bills models.Bills) error {
	msgs, err := BuildMessages(bills, k.runID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish bills: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// BuildMessages encodes bills as Kafka messages sorted by bill id.
func BuildMessages(bills models.Bills, runID string) ([]kafka.Message, error) {
	ids := make([]string, 0, len(bills))
	for id := range bills {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	msgs := make([]kafka.Message, 0, len(ids))
	for _, id := range ids {
		payload, err := json.Marshal(bills[id])
		if err != nil {
			return nil, fmt.Errorf("marshal bill %s: %w", id, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(id),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(runID)},
			},
		})
	}
	return msgs, nil
}
