package invite

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pacer hands out invitation slots separated by a delay drawn from a
// DelayRange. Concurrent callers get consecutive slots.
type pacer struct {
	mu    sync.Mutex
	delay domain.DelayRange
	rng   *rand.Rand
	next  time.Time
	now   func() time.Time
	sleep SleepFunc
}

func newPacer(delay domain.DelayRange, rng *rand.Rand, now func() time.Time, sleep SleepFunc) *pacer {
	return &pacer{delay: delay, rng: rng, now: now, sleep: sleep}
}

// wait blocks until the caller's slot and reserves the following one.
func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	now := p.now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.delay.Draw(p.rng))
	p.mu.Unlock()

	if d := slot.Sub(now); d > 0 {
		return p.sleep(ctx, d)
	}
	return ctx.Err()
}
