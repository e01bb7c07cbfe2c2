package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes events as JSON, keyed by agency id so one
// agency's events stay ordered within a partition.
type KafkaDispatcher struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaWriter returns a writer that hashes message keys onto partitions.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaDispatcher(w MessageWriter, timeout time.Duration) *KafkaDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaDispatcher{w: w, timeout: timeout}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Name, err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.AgencyID()), 10)),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Name)},
			{Key: "event_id", Value: []byte(e.ID.String())},
		},
	}
	if err := d.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Name, err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.w.Close()
}
