package repository

import (
	"context"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	pkgkafka "BarPulse/pkg/kafka"
)

// KafkaBarPublisher publishes bars to a Kafka topic, keyed by symbol so a
// consumer sees each symbol's bars in order.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaBarPublisher creates a Kafka-backed bar publisher.
func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) *KafkaBarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) PublishBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, 0, len(bars))
	for _, b := range bars {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(b.Symbol),
			Value: b,
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	return p.producer.Close()
}

// NopBarPublisher drops bars. Used when Kafka fan-out is disabled.
type NopBarPublisher struct{}

func (NopBarPublisher) PublishBars(context.Context, []models.Bar) error { return nil }
func (NopBarPublisher) Close() error                                    { return nil }

var _ drepo.BarPublisher = (*KafkaBarPublisher)(nil)
var _ drepo.BarPublisher = NopBarPublisher{}
