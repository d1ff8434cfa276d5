package main

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ritvik/chat-dispatch/pkg/db"
	"github.com/ritvik/chat-dispatch/pkg/model"
)

// Consumer tails the gateway's message-events topic and maintains the
// conversation index: one row per direct thread per participant, plus an
// unread counter for the recipient.
type Consumer struct {
	reader *kafka.Reader
	db     *db.Session
}

func NewConsumer(brokers []string, topic, groupID string, session *db.Session) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: r, db: session}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("archiver: read: %v, retrying in 1s", err)
			time.Sleep(time.Second)
			continue
		}

		var msg model.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Printf("archiver: unmarshal event: %v", err)
			continue
		}
		c.apply(&msg)
	}
}

func (c *Consumer) apply(msg *model.Message) {
	if !msg.IsDirect() {
		// Group threads are discoverable through membership; nothing to
		// index for them yet.
		return
	}

	from := strconv.FormatInt(msg.FromUserID, 10)
	to := strconv.FormatInt(msg.ToUserID, 10)

	q := `INSERT INTO user_conversations (user_id, other_user_id, last_updated) VALUES (?, ?, ?)`
	if err := c.db.Query(q, from, to, msg.UserTime).Exec(); err != nil {
		log.Printf("archiver: conversation %s->%s: %v", from, to, err)
	}
	if err := c.db.Query(q, to, from, msg.UserTime).Exec(); err != nil {
		log.Printf("archiver: conversation %s->%s: %v", to, from, err)
	}

	qCounter := `UPDATE conversation_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND other_user_id = ?`
	if err := c.db.Query(qCounter, to, from).Exec(); err != nil {
		log.Printf("archiver: unread counter for %s: %v", to, err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
