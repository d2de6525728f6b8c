package feed

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func framed(schemaID int, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)
	return value
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"workout_id":"abc","occurred_at":"2025-04-14T09:30:00Z"}`)
	msg := kafka.Message{
		Topic:     "workout_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Key:       []byte("abc"),
		Value:     framed(2, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventWorkoutDeleted)},
			{Key: "source", Value: []byte(Source)},
			{Key: "schema_subject", Value: []byte("workout_events-workout.deleted")},
		},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, EventWorkoutDeleted, handler.last.EventType)
	require.Equal(t, "abc", handler.last.Key)
	require.Equal(t, Source, handler.last.Source)
	require.Equal(t, 2, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "workout_events",
		Offset: 20,
		Value:  framed(3, []byte(`{"removed":2}`)),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventWorkoutsClear)},
		},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func record(offset int64, eventType, key string, payload string, headers ...kafka.Header) kafka.Message {
	msg := kafka.Message{
		Topic:  "workout_events",
		Offset: offset,
		Key:    []byte(key),
		Value:  framed(1, []byte(payload)),
	}
	if eventType != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "event_type", Value: []byte(eventType)})
	}
	msg.Headers = append(msg.Headers, headers...)
	return msg
}

func TestProcessorDispositions(t *testing.T) {
	tests := []struct {
		name    string
		msg     kafka.Message
		handled bool
	}{
		{name: "truncated frame", msg: kafka.Message{Topic: "workout_events", Value: []byte{0, 1}}},
		{name: "missing event type", msg: record(2, "", "", `{}`)},
		{name: "invalid json", msg: record(3, EventWorkoutsSorted, "", `{oops`)},
		{name: "workout event without key", msg: record(4, EventWorkoutUpdated, "", `{}`)},
		{name: "unknown event type", msg: record(5, "workout.archived", "abc", `{}`)},
		{name: "foreign source", msg: record(6, EventWorkoutCreated, "abc", `{}`, kafka.Header{Key: "source", Value: []byte("importer")})},
		{name: "collection event", msg: record(7, EventWorkoutsSorted, "", `{"key":"distance"}`), handled: true},
		{name: "workout event", msg: record(8, EventWorkoutCreated, "abc", `{}`, kafka.Header{Key: "source", Value: []byte(Source)}), handled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &stubReader{messages: []kafka.Message{tt.msg}, after: contextCanceled}
			handler := &stubHandler{}

			err := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0))).Run(context.Background())
			require.ErrorIs(t, err, context.Canceled)
			require.Equal(t, 1, reader.commitCalls)
			if tt.handled {
				require.Equal(t, 1, handler.calls)
			} else {
				require.Zero(t, handler.calls)
			}
		})
	}
}

func TestProcessorSkipsUnknownEventsCountedByReason(t *testing.T) {
	before := testutil.ToFloat64(skippedCounter.WithLabelValues("workout_events", "unknown_event"))

	reader := &stubReader{
		messages: []kafka.Message{
			record(1, "workout.archived", "abc", `{}`),
			record(2, "workout.shared", "abc", `{}`),
			record(3, EventWorkoutDeleted, "abc", `{}`),
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0))).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
	require.Equal(t, EventWorkoutDeleted, handler.last.EventType)
	require.Equal(t, 3, reader.commitCalls)
	require.Equal(t, before+2, testutil.ToFloat64(skippedCounter.WithLabelValues("workout_events", "unknown_event")))
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
