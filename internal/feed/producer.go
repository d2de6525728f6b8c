package feed

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer writes feed records through one writer shared by every
// topic; each record carries its own topic.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer for brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// Hash keeps every event of one workout on one partition.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		// A user action publishes one event and waits for it.
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// WriteMessages writes msgs to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if topic == "" {
		return errors.New("feed: topic is required")
	}
	records := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		records[i] = msg
	}
	return p.writer.WriteMessages(ctx, records...)
}

// Close flushes pending records and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
