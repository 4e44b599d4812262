package match

import (
	"context"
	"time"
)

// Clock delivers display callbacks, usually faster than the frame rate.
type Clock interface {
	C() <-chan time.Time
	Stop()
}

type tickerClock struct{ t *time.Ticker }

// NewTickerClock returns a Clock backed by time.Ticker.
func NewTickerClock(period time.Duration) Clock {
	return tickerClock{t: time.NewTicker(period)}
}

func (c tickerClock) C() <-chan time.Time { return c.t.C }
func (c tickerClock) Stop()               { c.t.Stop() }

// Pacer drops display callbacks that arrive less than one frame interval
// after the last worked frame. Dropped callbacks do not accumulate. The first
// callback only starts the clock.
type Pacer struct {
	interval time.Duration
	last     time.Time
	started  bool
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Ready reports whether a frame should be worked at now.
func (p *Pacer) Ready(now time.Time) bool {
	if !p.started {
		p.started = true
		p.last = now
		return false
	}
	if now.Sub(p.last) < p.interval {
		return false
	}
	p.last = now
	return true
}

// Run works frames on its own goroutine, paced by clock, and returns the
// match result immediately. A nil clock ticks at the tuned display rate.
// Cancelling ctx stops the loop and leaves the result unresolved. Run must
// be called at most once.
func (m *Match) Run(ctx context.Context, clock Clock) *Result {
	if clock == nil {
		clock = NewTickerClock(m.cfg.DisplayInterval())
	}
	go func() {
		defer clock.Stop()
		pacer := NewPacer(m.cfg.FrameInterval())
		for {
			select {
			case <-ctx.Done():
				m.log.Printf("match stopped at frame %d: %v", m.frame, ctx.Err())
				return
			case now := <-clock.C():
				if !pacer.Ready(now) {
					continue
				}
				if m.Tick() {
					return
				}
			}
		}
	}()
	return m.result
}
