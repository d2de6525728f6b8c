package feed

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Source is written to the source header of every record.
const Source = "mapty"

// Publisher delivers workout change events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Discard drops every event. It is used when the feed is disabled.
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// PublisherOption configures a KafkaPublisher.
type PublisherOption func(*KafkaPublisher)

// WithRegistry resolves schema ids through registry instead of the catalog.
func WithRegistry(registry Registry) PublisherOption {
	return func(p *KafkaPublisher) {
		if registry != nil {
			p.registry = registry
		}
	}
}

// WithPublisherLogger overrides the publisher logger.
func WithPublisherLogger(logger *log.Logger) PublisherOption {
	return func(p *KafkaPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPublisherClock overrides the record timestamp source.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *KafkaPublisher) {
		if now != nil {
			p.now = now
		}
	}
}

// KafkaPublisher frames events with their schema id and writes them to one topic.
type KafkaPublisher struct {
	writer   messageWriter
	registry Registry
	topic    string
	logger   *log.Logger
	now      func() time.Time

	schemaIDCache sync.Map
}

// NewKafkaPublisher builds a publisher writing to topic through writer.
func NewKafkaPublisher(writer messageWriter, topic string, opts ...PublisherOption) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:   writer,
		registry: StaticRegistry{},
		topic:    topic,
		logger:   log.New(log.Writer(), "[feed] ", log.LstdFlags|log.Lshortfile),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject is the schema subject of eventType on topic.
func Subject(topic, eventType string) string {
	return topic + "-" + eventType
}

// Publish writes events as one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		record, err := p.encode(ctx, event)
		if err != nil {
			recordPublishError(event.Type)
			return err
		}
		records = append(records, record)
	}

	if err := p.writer.WriteMessages(ctx, p.topic, records...); err != nil {
		for _, event := range events {
			recordPublishError(event.Type)
		}
		return fmt.Errorf("write %d events to %s: %w", len(records), p.topic, err)
	}
	for _, event := range events {
		recordPublished(event.Type)
	}
	return nil
}

func (p *KafkaPublisher) encode(ctx context.Context, event Event) (kafka.Message, error) {
	meta, ok := schemaCatalog[event.Type]
	if !ok {
		return kafka.Message{}, fmt.Errorf("no schema metadata for event_type=%s", event.Type)
	}
	subject := Subject(p.topic, event.Type)

	schemaID, err := p.schemaID(ctx, subject, meta.Schema)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("resolve schema %s: %w", subject, err)
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", event.Type, err)
	}

	return kafka.Message{
		Key:   []byte(event.Key),
		Value: encodeWireFormat(schemaID, payload),
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "schema_subject", Value: []byte(subject)},
			{Key: "source", Value: []byte(Source)},
		},
	}, nil
}

func (p *KafkaPublisher) schemaID(ctx context.Context, subject, schema string) (int, error) {
	if id, ok := p.schemaIDCache.Load(subject); ok {
		return id.(int), nil
	}
	id, err := p.registry.EnsureSchema(ctx, subject, schema)
	if err != nil {
		return 0, err
	}
	p.schemaIDCache.Store(subject, id)
	return id, nil
}

// encodeWireFormat applies Confluent framing: magic byte, schema id, payload.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
