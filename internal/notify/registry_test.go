package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
)

type fakeChannel struct {
	id      string
	mu      sync.Mutex
	got     []any
	sendErr error
	closed  atomic.Bool
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{id: id}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Closed() bool { return c.closed.Load() }

func (c *fakeChannel) Send(_ context.Context, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.got = append(c.got, payload)
	return nil
}

func (c *fakeChannel) received() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.got...)
}

type RegistrySuite struct {
	suite.Suite
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestSubscribeAndBroadcast() {
	s.Run("delivers to every channel under the key", func() {
		a, b := newFakeChannel("a"), newFakeChannel("b")
		s.registry.Subscribe("S1", a)
		s.registry.Subscribe("S1", b)

		n := s.registry.Broadcast(s.ctx, "S1", "hello")
		s.Equal(2, n)
		s.Equal([]any{"hello"}, a.received())
		s.Equal([]any{"hello"}, b.received())
	})

	s.Run("unknown key delivers nothing", func() {
		s.Equal(0, s.registry.Broadcast(s.ctx, "nobody", "hello"))
	})

	s.Run("resubscribe moves the channel", func() {
		reg := NewRegistry()
		ch := newFakeChannel("c")
		reg.Subscribe("S1", ch)
		reg.Subscribe("S2", ch)

		s.Equal(0, reg.Broadcast(s.ctx, "S1", "x"))
		s.Equal(1, reg.Broadcast(s.ctx, "S2", "x"))
		s.Equal(1, reg.Count())
		s.Equal(1, reg.KeyCount())
	})
}

func (s *RegistrySuite) TestRekey() {
	s.Run("channel is reachable under both keys after rekey", func() {
		ch := newFakeChannel("c1")
		s.registry.Subscribe("S1", ch)

		s.Equal(1, s.registry.Rekey("S1", "C1"))

		s.Equal(1, s.registry.Broadcast(s.ctx, "S1", "by-session"))
		s.Equal(1, s.registry.Broadcast(s.ctx, "C1", "by-connection"))
		s.Equal([]any{"by-session", "by-connection"}, ch.received())
	})

	s.Run("broadcast to both keys delivers once", func() {
		reg := NewRegistry()
		ch := newFakeChannel("c2")
		reg.Subscribe("S2", ch)
		reg.Rekey("S2", "C2")

		s.Equal(1, reg.BroadcastKeys(s.ctx, "once", "C2", "S2"))
		s.Len(ch.received(), 1)
	})

	s.Run("rekey without subscribers is a no-op", func() {
		reg := NewRegistry()
		s.Equal(0, reg.Rekey("S3", "C3"))
		s.Equal(0, reg.KeyCount())
	})

	s.Run("rekey is idempotent", func() {
		reg := NewRegistry()
		ch := newFakeChannel("c4")
		reg.Subscribe("S4", ch)
		reg.Rekey("S4", "C4")
		reg.Rekey("S4", "C4")

		s.Equal(2, reg.KeyCount())
		s.Equal(1, reg.Broadcast(s.ctx, "C4", "x"))
	})

	s.Run("rekey ignores empty or identical keys", func() {
		reg := NewRegistry()
		reg.Subscribe("S5", newFakeChannel("c5"))
		s.Equal(0, reg.Rekey("S5", ""))
		s.Equal(0, reg.Rekey("S5", "S5"))
		s.Equal(1, reg.KeyCount())
	})
}

func (s *RegistrySuite) TestCleanup() {
	s.Run("unsubscribe removes both keys and empty buckets", func() {
		reg := NewRegistry()
		ch := newFakeChannel("c1")
		reg.Subscribe("S1", ch)
		reg.Rekey("S1", "C1")
		s.Equal(2, reg.KeyCount())

		reg.Unsubscribe(ch)
		s.Equal(0, reg.Count())
		s.Equal(0, reg.KeyCount())
	})

	s.Run("unsubscribe of an unknown channel is harmless", func() {
		reg := NewRegistry()
		reg.Unsubscribe(newFakeChannel("ghost"))
		s.Equal(0, reg.Count())
	})

	s.Run("closed channels are skipped", func() {
		reg := NewRegistry()
		open, closed := newFakeChannel("open"), newFakeChannel("closed")
		closed.closed.Store(true)
		reg.Subscribe("S1", open)
		reg.Subscribe("S1", closed)

		s.Equal(1, reg.Broadcast(s.ctx, "S1", "x"))
		s.Empty(closed.received())
	})

	s.Run("failing channel is dropped and others still receive", func() {
		reg := NewRegistry()
		good, bad := newFakeChannel("good"), newFakeChannel("bad")
		bad.sendErr = errors.New("broken pipe")
		reg.Subscribe("S1", good)
		reg.Subscribe("S1", bad)

		s.Equal(1, reg.Broadcast(s.ctx, "S1", "x"))
		s.Equal(1, reg.Count())
		s.Equal([]any{"x"}, good.received())
	})
}

func (s *RegistrySuite) TestConcurrentAccess() {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch := newFakeChannel(fmt.Sprintf("c%d", i))
			session := fmt.Sprintf("S%d", i%5)
			reg.Subscribe(session, ch)
			reg.Rekey(session, fmt.Sprintf("C%d", i%5))
			reg.BroadcastKeys(s.ctx, "tick", session, fmt.Sprintf("C%d", i%5))
			reg.Unsubscribe(ch)
		}(i)
	}
	wg.Wait()

	s.Equal(0, reg.Count())
	s.Equal(0, reg.KeyCount())
}
