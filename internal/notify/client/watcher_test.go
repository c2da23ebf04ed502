package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeStream struct {
	msgs   chan json.RawMessage
	closed atomic.Bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{msgs: make(chan json.RawMessage, 8)}
}

func (s *fakeStream) Read(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.msgs:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	}
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	dialFn  func(n int) (Stream, error)
	dials   int
	polls   atomic.Int32
	pollErr error
}

func (t *fakeTransport) Dial(context.Context) (Stream, error) {
	t.mu.Lock()
	t.dials++
	n := t.dials
	t.mu.Unlock()
	return t.dialFn(n)
}

func (t *fakeTransport) Poll(context.Context) (json.RawMessage, error) {
	t.polls.Add(1)
	if t.pollErr != nil {
		return nil, t.pollErr
	}
	return json.RawMessage(`{"status":"invitation"}`), nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

type collector struct {
	mu      sync.Mutex
	updates []Update
	states  []State
}

func (c *collector) handle(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *collector) onState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, s)
}

func (c *collector) count(src Source) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, u := range c.updates {
		if u.Source == src {
			n++
		}
	}
	return n
}

func (c *collector) sawState(s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, got := range c.states {
		if got == s {
			return true
		}
	}
	return false
}

type WatcherSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestWatcherSuite(t *testing.T) {
	suite.Run(t, new(WatcherSuite))
}

func (s *WatcherSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *WatcherSuite) newWatcher(tr Transport, c *collector) *Watcher {
	return New(tr,
		WithLogger(s.logger),
		WithBackoff(time.Millisecond, 4*time.Millisecond, 3),
		WithPolling(5*time.Millisecond, 30*time.Millisecond),
		WithStateListener(c.onState),
	)
}

func (s *WatcherSuite) TestPushDelivery() {
	stream := newFakeStream()
	tr := &fakeTransport{dialFn: func(int) (Stream, error) { return stream, nil }}
	c := &collector{}
	w := s.newWatcher(tr, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c.handle) }()

	stream.msgs <- json.RawMessage(`{"type":"connected"}`)
	stream.msgs <- json.RawMessage(`{"type":"status_update"}`)
	s.Eventually(func() bool { return c.count(SourcePush) == 2 }, time.Second, time.Millisecond)
	s.Equal(StateOpen, w.State())

	cancel()
	s.ErrorIs(<-done, context.Canceled)
	s.True(stream.closed.Load())
	s.Equal(StateDisconnected, w.State())
	s.Equal(int32(0), tr.polls.Load())
}

func (s *WatcherSuite) TestRetriesWithinBudget() {
	stream := newFakeStream()
	tr := &fakeTransport{dialFn: func(n int) (Stream, error) {
		if n < 3 {
			return nil, errors.New("refused")
		}
		return stream, nil
	}}
	c := &collector{}
	w := s.newWatcher(tr, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, c.handle) }()

	s.Eventually(func() bool { return w.State() == StateOpen }, time.Second, time.Millisecond)
	s.Equal(3, tr.dialCount())
	s.False(c.sawState(StatePolling))
}

func (s *WatcherSuite) TestFallsBackToPollingThenRecovers() {
	stream := newFakeStream()
	var allowDial atomic.Bool
	tr := &fakeTransport{dialFn: func(int) (Stream, error) {
		if !allowDial.Load() {
			return nil, errors.New("refused")
		}
		return stream, nil
	}}
	c := &collector{}
	w := s.newWatcher(tr, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, c.handle) }()

	s.Run("polls after the dial budget is spent", func() {
		s.Eventually(func() bool { return w.State() == StatePolling }, time.Second, time.Millisecond)
		s.Eventually(func() bool { return c.count(SourcePoll) >= 2 }, time.Second, time.Millisecond)
		s.GreaterOrEqual(tr.dialCount(), 3)
	})

	s.Run("a successful probe stops polling", func() {
		allowDial.Store(true)
		s.Eventually(func() bool { return w.State() == StateOpen }, time.Second, time.Millisecond)

		polls := tr.polls.Load()
		time.Sleep(25 * time.Millisecond)
		s.Equal(polls, tr.polls.Load())

		stream.msgs <- json.RawMessage(`{"type":"status_update"}`)
		s.Eventually(func() bool { return c.count(SourcePush) == 1 }, time.Second, time.Millisecond)
	})
}

func (s *WatcherSuite) TestReconnectsAfterDrop() {
	first, second := newFakeStream(), newFakeStream()
	tr := &fakeTransport{dialFn: func(n int) (Stream, error) {
		if n == 1 {
			return first, nil
		}
		return second, nil
	}}
	c := &collector{}
	w := s.newWatcher(tr, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, c.handle) }()

	s.Eventually(func() bool { return w.State() == StateOpen }, time.Second, time.Millisecond)
	close(first.msgs)

	s.Eventually(func() bool { return tr.dialCount() == 2 }, time.Second, time.Millisecond)
	s.Eventually(func() bool { return w.State() == StateOpen }, time.Second, time.Millisecond)
	s.True(first.closed.Load())
}

func (s *WatcherSuite) TestUnknownSessionStops() {
	tr := &fakeTransport{dialFn: func(int) (Stream, error) { return nil, ErrSessionNotFound }}
	c := &collector{}
	w := s.newWatcher(tr, c)

	err := w.Run(context.Background(), c.handle)
	s.ErrorIs(err, ErrSessionNotFound)
	s.Equal(1, tr.dialCount())
}

func (s *WatcherSuite) TestHTTPTransportPoll() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sessions/S1/status":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sessionId":"S1","status":"connected"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s.Run("returns the status document", func() {
		payload, err := NewHTTPTransport(srv.URL+"/", "S1", nil).Poll(context.Background())
		s.Require().NoError(err)
		s.JSONEq(`{"sessionId":"S1","status":"connected"}`, string(payload))
	})

	s.Run("unknown session", func() {
		_, err := NewHTTPTransport(srv.URL, "nope", nil).Poll(context.Background())
		s.ErrorIs(err, ErrSessionNotFound)
	})

	s.Run("dial to unknown session", func() {
		_, err := NewHTTPTransport(srv.URL, "nope", nil).Dial(context.Background())
		s.ErrorIs(err, ErrSessionNotFound)
	})
}
