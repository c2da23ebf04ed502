package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"credbridge/pkg/platform/circuit"
)

type fakeProducer struct {
	mu      sync.Mutex
	err     error
	records []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func (p *fakeProducer) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type recordingPublisher struct {
	events []PlatformEvent
}

func (r *recordingPublisher) Publish(_ context.Context, e PlatformEvent) error {
	r.events = append(r.events, e)
	return nil
}

type KafkaPublisherSuite struct {
	suite.Suite
	producer  *fakeProducer
	fallback  *recordingPublisher
	publisher *KafkaPublisher
	ctx       context.Context
}

func TestKafkaPublisherSuite(t *testing.T) {
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupTest() {
	s.producer = &fakeProducer{}
	s.fallback = &recordingPublisher{}
	s.publisher = NewKafkaPublisher(s.producer, "platform-events",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithFallback(s.fallback),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
	)
	s.ctx = context.Background()
}

func sampleEvent() PlatformEvent {
	return PlatformEvent{
		Type:         "connections",
		Category:     "connection",
		State:        "completed",
		ConnectionID: "C1",
		Outcome:      "applied",
		ReceivedAt:   time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
}

func (s *KafkaPublisherSuite) TestPublish() {
	s.Require().NoError(s.publisher.Publish(s.ctx, sampleEvent()))

	s.Require().Len(s.producer.records, 1)
	rec := s.producer.records[0]
	s.Equal("platform-events", rec.Topic)
	s.Equal("C1", string(rec.Key))
	s.Equal("connections", string(rec.Headers[0].Value))
	s.JSONEq(`{"type":"connections","category":"connection","state":"completed","connectionId":"C1","outcome":"applied","receivedAt":"2026-05-04T09:00:00Z"}`, string(rec.Value))
	s.Empty(s.fallback.events)
}

func (s *KafkaPublisherSuite) TestBreaker() {
	s.producer.setErr(errors.New("broker down"))

	s.Run("failure below the threshold is returned", func() {
		err := s.publisher.Publish(s.ctx, sampleEvent())
		s.Error(err)
		s.False(s.publisher.Degraded())
		s.Empty(s.fallback.events)
	})

	s.Run("open breaker diverts to fallback", func() {
		s.NoError(s.publisher.Publish(s.ctx, sampleEvent()))
		s.True(s.publisher.Degraded())
		s.Len(s.fallback.events, 1)
	})

	s.Run("recovery closes the breaker", func() {
		s.producer.setErr(nil)
		s.NoError(s.publisher.Publish(s.ctx, sampleEvent()))
		s.False(s.publisher.Degraded())
		s.Len(s.producer.records, 1)
	})
}

func (s *KafkaPublisherSuite) TestKey() {
	s.Equal("C1", PlatformEvent{ConnectionID: "C1", ProofID: "P1"}.Key())
	s.Equal("P1", PlatformEvent{ProofID: "P1", EventID: "E1"}.Key())
	s.Equal("E1", PlatformEvent{EventID: "E1"}.Key())
}
