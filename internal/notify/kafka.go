package notify

import (
	"context"

	"github.com/segmentio/kafka-go"

	"example.com/fittrack/internal/events"
)

// MessageWriter writes records to a topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// KafkaPublisher publishes envelopes straight to Kafka, without an outbox.
type KafkaPublisher struct {
	writer MessageWriter
	routes events.Routes
}

// NewKafkaPublisher constructs a KafkaPublisher.
func NewKafkaPublisher(writer MessageWriter, routes events.Routes) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, routes: routes}
}

// Publish implements events.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, envelope events.Envelope) error {
	topic, err := p.routes.TopicFor(envelope.Type)
	if err != nil {
		return err
	}
	msg := events.ToKafka(topic, envelope)
	// kafka.Writer rejects records carrying a topic when the writer has one set.
	msg.Topic = ""
	return p.writer.WriteMessages(ctx, topic, msg)
}
