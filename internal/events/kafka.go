package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"credbridge/pkg/platform/circuit"
)

const defaultProduceTimeout = 2 * time.Second

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher produces events to Kafka. After repeated produce failures
// the breaker opens and events go to the fallback publisher until Kafka
// recovers.
type KafkaPublisher struct {
	producer Producer
	topic    string
	fallback Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
	timeout  time.Duration
}

type KafkaOption func(*KafkaPublisher)

func WithFallback(p Publisher) KafkaOption {
	return func(k *KafkaPublisher) {
		k.fallback = p
	}
}

func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(k *KafkaPublisher) {
		k.breaker = b
	}
}

func WithProduceTimeout(d time.Duration) KafkaOption {
	return func(k *KafkaPublisher) {
		if d > 0 {
			k.timeout = d
		}
	}
}

// NewKafkaPublisher publishes to topic; an empty topic uses the client's
// default produce topic.
func NewKafkaPublisher(producer Producer, topic string, logger *slog.Logger, opts ...KafkaOption) *KafkaPublisher {
	k := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
		breaker:  circuit.New("kafka-events"),
		timeout:  defaultProduceTimeout,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.fallback == nil {
		k.fallback = NewLogPublisher(logger)
	}
	return k
}

func (k *KafkaPublisher) Publish(ctx context.Context, event PlatformEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode platform event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(event.Type)},
		},
		Timestamp: event.ReceivedAt,
	}

	produceCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	if err := k.producer.ProduceSync(produceCtx, record).FirstErr(); err != nil {
		useFallback, change := k.breaker.RecordFailure()
		if change.Opened {
			k.logger.WarnContext(ctx, "kafka publisher degraded, using fallback",
				"breaker", k.breaker.Name(),
				"error", err,
			)
		}
		if useFallback {
			return k.fallback.Publish(ctx, event)
		}
		return fmt.Errorf("produce platform event: %w", err)
	}

	if _, change := k.breaker.RecordSuccess(); change.Closed {
		k.logger.InfoContext(ctx, "kafka publisher recovered", "breaker", k.breaker.Name())
	}
	return nil
}

// Degraded reports whether events are currently diverted to the fallback.
func (k *KafkaPublisher) Degraded() bool {
	return k.breaker.IsOpen()
}
