package musicbrainz

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Gate admits one request at a time and keeps the slot closed for a fixed
// interval after the holder releases it. Two requests therefore never start
// within interval of the previous one finishing, however many goroutines are
// waiting.
type Gate struct {
	sem      *semaphore.Weighted
	interval time.Duration
}

// NewGate returns a gate with the given post-release hold.
func NewGate(interval time.Duration) *Gate {
	if interval < 0 {
		interval = 0
	}
	return &Gate{sem: semaphore.NewWeighted(1), interval: interval}
}

// Acquire blocks until the gate is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release reopens the gate once the interval has elapsed. It returns
// immediately; the hold runs on a timer.
func (g *Gate) Release() {
	if g.interval == 0 {
		g.sem.Release(1)
		return
	}
	time.AfterFunc(g.interval, func() { g.sem.Release(1) })
}

// Interval reports the configured hold.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
