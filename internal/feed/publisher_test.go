package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

type stubWriter struct {
	topic    string
	messages []kafka.Message
	err      error
}

func (w *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.topic = topic
	w.messages = append(w.messages, msgs...)
	return nil
}

var fixedNow = time.Date(2025, time.April, 14, 10, 0, 0, 0, time.UTC)

func sampleRun(t *testing.T) *workout.Workout {
	t.Helper()
	w, err := workout.New("run-1", fixedNow, workout.Input{
		Kind:    workout.KindRunning,
		Coords:  workout.Coordinates{Lat: 39, Lng: -12},
		Metrics: workout.Metrics{DistanceKm: 5, DurationMin: 25, CadenceSpm: 170},
	})
	require.NoError(t, err)
	return w
}

func TestPublishFramesEventsForTheProcessor(t *testing.T) {
	writer := &stubWriter{}
	pub := NewKafkaPublisher(writer, "workout_events", WithPublisherClock(func() time.Time { return fixedNow }))

	require.NoError(t, pub.Publish(context.Background(), Created(sampleRun(t), fixedNow), Cleared(1, fixedNow)))
	require.Equal(t, "workout_events", writer.topic)
	require.Len(t, writer.messages, 2)

	msg := writer.messages[0]
	msg.Topic = writer.topic
	decoded, err := decodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, EventWorkoutCreated, decoded.EventType)
	require.Equal(t, "run-1", decoded.Key)
	require.Equal(t, Source, decoded.Source)
	require.Equal(t, "workout_events-workout.created", decoded.SchemaSubject)
	require.Equal(t, 1, decoded.SchemaID)
	require.Equal(t, fixedNow, decoded.Timestamp)

	var payload WorkoutChanged
	require.NoError(t, json.Unmarshal(decoded.Payload, &payload))
	require.Equal(t, "running", payload.Kind)
	require.Equal(t, "Running on April 14", payload.Description)
	require.NotNil(t, payload.PaceMinPerKm)
	require.Equal(t, 5.0, *payload.PaceMinPerKm)
	require.Nil(t, payload.SpeedKmPerH)

	cleared, err := decodeMessage(writer.messages[1])
	require.NoError(t, err)
	require.Equal(t, 3, cleared.SchemaID)
	require.Empty(t, cleared.Key)
}

func TestPublishRejectsUnknownEvents(t *testing.T) {
	writer := &stubWriter{}
	pub := NewKafkaPublisher(writer, "workout_events")

	err := pub.Publish(context.Background(), Event{Type: "workout.teleported"})
	require.Error(t, err)
	require.Empty(t, writer.messages)
}

func TestPublishWrapsWriterErrors(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewKafkaPublisher(&stubWriter{err: boom}, "workout_events")

	err := pub.Publish(context.Background(), Deleted("run-1", fixedNow))
	require.ErrorIs(t, err, boom)
	require.NoError(t, pub.Publish(context.Background()))
	require.NoError(t, Discard{}.Publish(context.Background(), Deleted("x", fixedNow)))
}

func TestPublisherCachesRegistryIDs(t *testing.T) {
	var lookups, registrations atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lookups.Add(1)
			http.NotFound(w, r)
		case http.MethodPost:
			registrations.Add(1)
			require.Equal(t, "/subjects/workout_events-workout.deleted/versions", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]int{"id": 77})
		}
	}))
	defer srv.Close()

	writer := &stubWriter{}
	pub := NewKafkaPublisher(writer, "workout_events", WithRegistry(NewRegistryClient(srv.URL+"/")))

	require.NoError(t, pub.Publish(context.Background(), Deleted("a", fixedNow)))
	require.NoError(t, pub.Publish(context.Background(), Deleted("b", fixedNow)))

	require.EqualValues(t, 1, lookups.Load())
	require.EqualValues(t, 1, registrations.Load())
	decoded, err := decodeMessage(writer.messages[1])
	require.NoError(t, err)
	require.Equal(t, 77, decoded.SchemaID)
}

func TestRegistryClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRegistryClient(srv.URL).EnsureSchema(context.Background(), "s", workoutDeletedSchema)
	require.ErrorContains(t, err, "unavailable")
}

func TestStaticRegistryMatchesCatalog(t *testing.T) {
	id, err := StaticRegistry{}.EnsureSchema(context.Background(), "any", workoutsSortedSchema)
	require.NoError(t, err)
	require.Equal(t, 4, id)

	_, err = StaticRegistry{}.EnsureSchema(context.Background(), "any", "{}")
	require.Error(t, err)
}
