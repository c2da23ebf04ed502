// Package client follows a session's push channel the way a browser does:
// reconnect with capped exponential backoff, then fall back to polling the
// status endpoint while probing for the channel to come back.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StatePolling:
		return "polling"
	default:
		return "unknown"
	}
}

type Source string

const (
	SourcePush Source = "push"
	SourcePoll Source = "poll"
)

// Update is one message from either mode.
type Update struct {
	Source  Source
	Payload json.RawMessage
}

const (
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = 30 * time.Second
	DefaultMaxAttempts     = 5
	DefaultPollInterval    = 3 * time.Second
	DefaultProbeInterval   = 15 * time.Second
)

// Watcher never runs push and poll at the same time; the poll loop is
// stopped and drained before a reopened stream is read.
type Watcher struct {
	transport       Transport
	clock           Clock
	logger          *slog.Logger
	initialInterval time.Duration
	maxInterval     time.Duration
	maxAttempts     uint64
	pollInterval    time.Duration
	probeInterval   time.Duration
	onState         func(State)

	state atomic.Int32
}

type Option func(*Watcher)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

func WithClock(clock Clock) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// WithBackoff sets the reconnect schedule. attempts counts dials, including
// the first.
func WithBackoff(initial, max time.Duration, attempts uint64) Option {
	return func(w *Watcher) {
		w.initialInterval = initial
		w.maxInterval = max
		w.maxAttempts = attempts
	}
}

func WithPolling(pollInterval, probeInterval time.Duration) Option {
	return func(w *Watcher) {
		w.pollInterval = pollInterval
		w.probeInterval = probeInterval
	}
}

// WithStateListener is called on every state change, from the Run goroutine.
func WithStateListener(fn func(State)) Option {
	return func(w *Watcher) {
		w.onState = fn
	}
}

func New(transport Transport, opts ...Option) *Watcher {
	w := &Watcher{
		transport:       transport,
		clock:           realClock{},
		logger:          slog.Default(),
		initialInterval: DefaultInitialInterval,
		maxInterval:     DefaultMaxInterval,
		maxAttempts:     DefaultMaxAttempts,
		pollInterval:    DefaultPollInterval,
		probeInterval:   DefaultProbeInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.maxAttempts == 0 {
		w.maxAttempts = 1
	}
	return w
}

func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Run delivers updates to handle until ctx ends or the session turns out not
// to exist. handle is never called concurrently.
func (w *Watcher) Run(ctx context.Context, handle func(Update)) error {
	defer w.setState(StateDisconnected)

	for {
		stream, err := w.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrSessionNotFound) {
				return err
			}
			w.logger.WarnContext(ctx, "push channel unavailable, polling",
				"attempts", w.maxAttempts,
				"error", err,
			)
			stream, err = w.pollUntilReconnected(ctx, handle)
			if err != nil {
				return err
			}
		}

		w.setState(StateOpen)
		err = w.consume(ctx, stream, handle)
		_ = stream.Close()
		w.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.InfoContext(ctx, "push channel dropped, reconnecting", "error", err)
	}
}

func (w *Watcher) connect(ctx context.Context) (Stream, error) {
	w.setState(StateConnecting)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = w.initialInterval
	exp.MaxInterval = w.maxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, w.maxAttempts-1), ctx)

	var stream Stream
	op := func() error {
		s, err := w.transport.Dial(ctx)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		stream = s
		return nil
	}
	notify := func(err error, next time.Duration) {
		w.logger.DebugContext(ctx, "push channel dial failed",
			"retry_in", next,
			"error", err,
		)
	}
	if err := backoff.RetryNotifyWithTimer(op, policy, notify, &backoffTimer{clock: w.clock}); err != nil {
		return nil, err
	}
	return stream, nil
}

func (w *Watcher) consume(ctx context.Context, stream Stream, handle func(Update)) error {
	for {
		msg, err := stream.Read(ctx)
		if err != nil {
			return err
		}
		handle(Update{Source: SourcePush, Payload: msg})
	}
}

// pollUntilReconnected polls on a fixed interval and probes the push channel
// on another. It returns once a probe succeeds, after polling has stopped.
func (w *Watcher) pollUntilReconnected(ctx context.Context, handle func(Update)) (Stream, error) {
	w.setState(StatePolling)

	pollCtx, stopPolling := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.pollLoop(pollCtx, handle)
	}()
	defer func() {
		stopPolling()
		wg.Wait()
	}()

	for {
		if err := w.sleep(ctx, w.probeInterval); err != nil {
			return nil, err
		}
		stream, err := w.transport.Dial(ctx)
		if err == nil {
			w.logger.InfoContext(ctx, "push channel restored, polling stopped")
			return stream, nil
		}
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		w.logger.DebugContext(ctx, "push channel probe failed", "error", err)
	}
}

func (w *Watcher) pollLoop(ctx context.Context, handle func(Update)) {
	for {
		payload, err := w.transport.Poll(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			w.logger.WarnContext(ctx, "status poll failed", "error", err)
		default:
			handle(Update{Source: SourcePoll, Payload: payload})
		}
		if w.sleep(ctx, w.pollInterval) != nil {
			return
		}
	}
}

func (w *Watcher) sleep(ctx context.Context, d time.Duration) error {
	t := w.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

func (w *Watcher) setState(s State) {
	if State(w.state.Swap(int32(s))) == s {
		return
	}
	if w.onState != nil {
		w.onState(s)
	}
}
