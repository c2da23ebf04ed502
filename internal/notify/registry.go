// Package notify keeps live push channels per browser session and delivers
// state-change broadcasts to them.
//
// A channel is registered under its session key when it opens. Once the
// platform confirms the connection, Rekey also registers it under the
// platform connection id, so broadcasts addressed to either key reach it.
// Delivery is best effort and at most once per channel per broadcast; clients
// recover missed updates through reconnect and polling.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Channel is a live push connection to one browser client. Implementations
// must be comparable (pointer receivers) and safe for concurrent Send.
type Channel interface {
	ID() string
	Send(ctx context.Context, payload any) error
	Closed() bool
}

type subscription struct {
	sessionKey    string
	connectionKey string
}

// Registry maps keys to channel sets with a reverse index for cleanup. One
// mutex guards both maps; sends run outside it on a copied slice.
type Registry struct {
	mu      sync.Mutex
	byKey   map[string]map[Channel]struct{}
	subs    map[Channel]*subscription
	logger  *slog.Logger
	metrics *Metrics
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byKey:  make(map[string]map[Channel]struct{}),
		subs:   make(map[Channel]*subscription),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers ch under sessionKey. A channel that was already
// subscribed is first removed from its previous keys.
func (r *Registry) Subscribe(sessionKey string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(ch)
	r.addLocked(sessionKey, ch)
	r.subs[ch] = &subscription{sessionKey: sessionKey}
	r.metrics.setActive(len(r.subs))
}

// Unsubscribe removes ch from every key it is registered under.
func (r *Registry) Unsubscribe(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(ch)
	r.metrics.setActive(len(r.subs))
}

// Rekey additionally registers every channel under sessionKey under
// connectionKey. Channels stay reachable under both keys. It returns the
// number of channels rekeyed; zero is not an error.
func (r *Registry) Rekey(sessionKey, connectionKey string) int {
	if sessionKey == "" || connectionKey == "" || sessionKey == connectionKey {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for ch := range r.byKey[sessionKey] {
		sub := r.subs[ch]
		if sub == nil {
			continue
		}
		if sub.connectionKey != "" && sub.connectionKey != connectionKey {
			r.dropLocked(sub.connectionKey, ch)
		}
		sub.connectionKey = connectionKey
		r.addLocked(connectionKey, ch)
		n++
	}
	return n
}

// Broadcast pushes payload to every open channel under key and returns the
// number of successful deliveries.
func (r *Registry) Broadcast(ctx context.Context, key string, payload any) int {
	return r.BroadcastKeys(ctx, payload, key)
}

// BroadcastKeys pushes payload once to every open channel registered under
// any of keys. A channel reachable under several keys receives one copy.
func (r *Registry) BroadcastKeys(ctx context.Context, payload any, keys ...string) int {
	targets := r.snapshot(keys)

	delivered, failed, skipped := 0, 0, 0
	for _, ch := range targets {
		if ch.Closed() {
			skipped++
			continue
		}
		if err := ch.Send(ctx, payload); err != nil {
			failed++
			r.logger.WarnContext(ctx, "push delivery failed",
				"channel_id", ch.ID(),
				"error", err,
			)
			r.Unsubscribe(ch)
			continue
		}
		delivered++
	}
	r.metrics.delivered("delivered", delivered)
	r.metrics.delivered("failed", failed)
	r.metrics.delivered("skipped", skipped)
	return delivered
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// KeyCount returns the number of non-empty key buckets.
func (r *Registry) KeyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

func (r *Registry) snapshot(keys []string) []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[Channel]struct{})
	var out []Channel
	for _, key := range keys {
		if key == "" {
			continue
		}
		for ch := range r.byKey[key] {
			if _, dup := seen[ch]; dup {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	return out
}

func (r *Registry) addLocked(key string, ch Channel) {
	set, ok := r.byKey[key]
	if !ok {
		set = make(map[Channel]struct{})
		r.byKey[key] = set
	}
	set[ch] = struct{}{}
}

func (r *Registry) dropLocked(key string, ch Channel) {
	set, ok := r.byKey[key]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.byKey, key)
	}
}

func (r *Registry) removeLocked(ch Channel) {
	sub, ok := r.subs[ch]
	if !ok {
		return
	}
	r.dropLocked(sub.sessionKey, ch)
	if sub.connectionKey != "" {
		r.dropLocked(sub.connectionKey, ch)
	}
	delete(r.subs, ch)
}
