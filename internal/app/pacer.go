package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out document fetches. A token bucket bounds the request rate
// and every Every documents all workers pause for Pause.
type Pacer struct {
	limiter *rate.Limiter
	every   int
	pause   time.Duration

	mu    sync.Mutex
	count int
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a pacer. rps <= 0 disables the token bucket and every <= 0
// disables the periodic pause.
func NewPacer(rps float64, burst, every int, pause time.Duration) *Pacer {
	p := &Pacer{every: every, pause: pause, sleep: sleepContext}
	if rps > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
	return p
}

// Wait blocks until the next document may be fetched.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.count++
	if p.every > 0 && p.pause > 0 && p.count > 1 && (p.count-1)%p.every == 0 {
		if err := p.sleep(ctx, p.pause); err != nil {
			p.mu.Unlock()
			return err
		}
	}
	p.mu.Unlock()

	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
