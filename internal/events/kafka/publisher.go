package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
)

// keyed events are partitioned by account so one account's events stay ordered.
type keyed interface {
	Key() int64
}

// Publisher is an interfaces.EventPublisher backed by a kafka-go Writer.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher writes to brokers. The topic is chosen per message.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			MaxAttempts:  3,
		},
	}
}

// Publish writes one JSON message and waits for the brokers' acks. The
// caller's ctx bounds the whole write, retries included.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	msg, err := message(topic, event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending writes and releases the writer's connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func message(topic string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{
		Topic: topic,
		Value: data,
	}
	if k, ok := event.(keyed); ok {
		msg.Key = []byte(strconv.FormatInt(k.Key(), 10))
	}
	return msg, nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
