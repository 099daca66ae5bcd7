package system

import (
	"context"
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
	"go.uber.org/zap"
)

// Runner drives a Ticker at a fixed rate and runs hooks after each frame.
type Runner struct {
	world Ticker
	rate  time.Duration
	hooks []Hook
	log   *zap.Logger
}

func NewRunner(world Ticker, rate time.Duration, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		world: world,
		rate:  rate,
		hooks: make([]Hook, 0, 4),
		log:   log,
	}
}

func (r *Runner) AddHook(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Step runs one frame with the given delta.
func (r *Runner) Step(dt time.Duration) ecs.TickStats {
	stats := r.world.Tick(dt)
	for _, h := range r.hooks {
		h(stats)
	}
	if stats.Run.Failed > 0 {
		r.log.Debug("tick had failing systems",
			zap.Uint64("tick", stats.Tick),
			zap.Int("failed", stats.Run.Failed))
	}
	return stats
}

// Run ticks until ctx is done. The delta passed to each frame is the wall
// time since the previous frame, so a slow frame is caught up by the next.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.rate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			r.Step(dt)
		}
	}
}
