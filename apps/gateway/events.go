package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/ritvik/chat-dispatch/pkg/model"
)

// EventFeed publishes every persisted message to Kafka for downstream
// consumers (the archiver). Failures are logged, never surfaced to clients.
type EventFeed struct {
	writer *kafka.Writer
}

func NewEventFeed(brokers []string, topic string) *EventFeed {
	return &EventFeed{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

func (f *EventFeed) Publish(ctx context.Context, msg *model.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("events: marshal message %d: %v", msg.MessageID, err)
		return
	}
	err = f.writer.WriteMessages(ctx, kafka.Message{
		Value: payload,
		Time:  msg.UserTime,
	})
	if err != nil {
		log.Printf("events: publish message %d: %v", msg.MessageID, err)
	}
}

func (f *EventFeed) Close() error {
	return f.writer.Close()
}
