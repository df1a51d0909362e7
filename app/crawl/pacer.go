package crawl

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out page requests so the remote side does not throttle us.
type Pacer interface {
	// Wait blocks before a request until the aggregate rate allows it.
	Wait(ctx context.Context) error
	// Pace blocks the calling worker after a completed request.
	Pace(ctx context.Context)
}

// RandomPacer sleeps a uniformly random duration in [min, max] after every
// request and optionally caps the aggregate request rate.
type RandomPacer struct {
	min     time.Duration
	max     time.Duration
	limiter *rate.Limiter
}

// NewRandomPacer creates a pacer. maxRPS <= 0 disables the aggregate cap.
func NewRandomPacer(min, max time.Duration, maxRPS float64) *RandomPacer {
	if max < min {
		max = min
	}
	p := &RandomPacer{min: min, max: max}
	if maxRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(maxRPS), 1)
	}
	return p
}

func (p *RandomPacer) Delay() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + time.Duration(rand.Int64N(int64(p.max-p.min)+1))
}

func (p *RandomPacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *RandomPacer) Pace(ctx context.Context) {
	d := p.Delay()
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

type noPacer struct{}

func (noPacer) Wait(context.Context) error { return nil }
func (noPacer) Pace(context.Context)       {}
