package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeSleeper records requested sleeps without blocking.
//
// Implements engine.Sleeper.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// Sleep records d and returns immediately, or returns ctx.Err() if ctx is done.
func (s *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

// Sleeps returns a copy of the recorded durations.
func (s *FakeSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// FixedClock returns a time source that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
