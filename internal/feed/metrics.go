package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "feed",
		Name:      "events_published_total",
		Help:      "Number of workout events written to Kafka.",
	}, []string{"event_type"})

	publishErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "feed",
		Name:      "publish_errors_total",
		Help:      "Number of workout events that could not be written.",
	}, []string{"event_type"})

	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of Kafka messages successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "consumer",
		Name:      "messages_skipped_total",
		Help:      "Number of committed messages that were not handed to the handler.",
	}, []string{"topic", "reason"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(publishedCounter, publishErrorCounter, processedCounter, handlerErrorCounter, decodeErrorCounter, skippedCounter, lastMessageGauge)
}

func recordPublished(eventType string) {
	publishedCounter.WithLabelValues(eventType).Inc()
}

func recordPublishError(eventType string) {
	publishErrorCounter.WithLabelValues(eventType).Inc()
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordSkipped(topic, reason string) {
	skippedCounter.WithLabelValues(topic, reason).Inc()
}
