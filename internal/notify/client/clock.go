package client

import "time"

// Clock creates cancellable timers.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// backoffTimer lets the retry loop wait on the watcher's clock.
type backoffTimer struct {
	clock Clock
	timer Timer
}

func (b *backoffTimer) Start(d time.Duration) {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = b.clock.NewTimer(d)
}

func (b *backoffTimer) Stop() {
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (b *backoffTimer) C() <-chan time.Time {
	return b.timer.C()
}
