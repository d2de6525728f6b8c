package feed

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded workout events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded form of a record written by KafkaPublisher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	Key           string
	EventType     string
	Source        string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// workoutScoped lists the event types keyed by a workout id.
var workoutScoped = map[string]bool{
	EventWorkoutCreated: true,
	EventWorkoutUpdated: true,
	EventWorkoutDeleted: true,
}

// collectionScoped lists the event types that describe the whole collection.
var collectionScoped = map[string]bool{
	EventWorkoutsClear:  true,
	EventWorkoutsSorted: true,
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor follows the workout feed and hands each known event to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *log.Logger
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run follows the feed until the context is cancelled.
//
// Records that cannot be decoded, event types this build does not know and
// events from other sources are committed without reaching the handler. A
// handler failure leaves the record uncommitted for redelivery.
func (p *Processor) Run(ctx context.Context) error {
	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch workout event: %v", err)
			continue
		}

		if !p.process(ctx, msg) {
			continue
		}
		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.Printf("commit offset %d on %s/%d: %v", msg.Offset, msg.Topic, msg.Partition, err)
		}
	}
}

// process reports whether msg is done with and may be committed.
func (p *Processor) process(ctx context.Context, msg kafka.Message) bool {
	event, err := decodeMessage(msg)
	if err != nil {
		p.logger.Printf("drop record %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		recordDecodeError(msg.Topic)
		return true
	}

	if reason := skipReason(event); reason != "" {
		recordSkipped(event.Topic, reason)
		return true
	}

	if err := p.handler.Handle(ctx, event); err != nil {
		p.logger.Printf("handle %s (workout=%q): %v", event.EventType, event.Key, err)
		recordHandlerError(event)
		return false
	}
	recordProcessed(event)
	return true
}

func skipReason(event Message) string {
	if !workoutScoped[event.EventType] && !collectionScoped[event.EventType] {
		return "unknown_event"
	}
	if event.Source != "" && event.Source != Source {
		return "foreign_source"
	}
	return ""
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < 5 || msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("not a schema registry frame (%d bytes)", len(msg.Value))
	}

	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("event_type header missing")
	}
	if workoutScoped[string(eventType)] && len(msg.Key) == 0 {
		return Message{}, fmt.Errorf("%s record has no workout key", eventType)
	}

	payload := json.RawMessage(append([]byte(nil), msg.Value[5:]...))
	if !json.Valid(payload) {
		return Message{}, errors.New("payload is not valid JSON")
	}

	source, _ := headerValue(msg, "source")
	subject, _ := headerValue(msg, "schema_subject")
	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		Key:           string(msg.Key),
		EventType:     string(eventType),
		Source:        string(source),
		SchemaSubject: string(subject),
		SchemaID:      int(binary.BigEndian.Uint32(msg.Value[1:5])),
		Payload:       payload,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}

// LogHandler writes a line per event.
type LogHandler struct {
	Logger *log.Logger
}

func (h LogHandler) Handle(_ context.Context, msg Message) error {
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	if msg.Key != "" {
		logger.Printf("%s workout=%s offset=%d payload=%s", msg.EventType, msg.Key, msg.Offset, msg.Payload)
		return nil
	}
	logger.Printf("%s offset=%d payload=%s", msg.EventType, msg.Offset, msg.Payload)
	return nil
}
