package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

type Publisher interface {
	Publish(ctx context.Context, ev CoverageEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, CoverageEvent) error { return nil }
func (Nop) Close() error                                 { return nil }

// Kafka publishes events synchronously, keyed by coverage id. Downloads are
// sequential, so waiting for the ack costs little next to the transfer.
type Kafka struct {
	topic string
	prod  sarama.SyncProducer
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("events: no kafka brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("events: kafka topic is required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = Source
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create sync producer: %w", err)
	}
	return NewKafkaWithProducer(prod, topic), nil
}

func NewKafkaWithProducer(prod sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{topic: topic, prod: prod}
}

func (k *Kafka) Publish(ctx context.Context, ev CoverageEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("events: invalid event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	_, _, err = k.prod.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.CoverageID),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("events: send %s: %w", ev.CoverageID, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	if err := k.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
