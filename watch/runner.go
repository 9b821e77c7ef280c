package watch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RebuildFunc performs one recompilation pass over the changed sources.
type RebuildFunc func(ctx context.Context, changed []string) error

// Runner drains a Watcher's triggers through a rate limiter so a noisy
// editor cannot drive back-to-back rebuilds.
type Runner struct {
	watcher *Watcher
	limiter *rate.Limiter
	rebuild RebuildFunc
	logger  *zap.SugaredLogger
}

// NewRunner caps rebuilds at maxPerSec with a burst of one.
func NewRunner(watcher *Watcher, maxPerSec float64, rebuild RebuildFunc, logger *zap.SugaredLogger) *Runner {
	return &Runner{
		watcher: watcher,
		limiter: rate.NewLimiter(rate.Limit(maxPerSec), 1),
		rebuild: rebuild,
		logger:  logger.Named("watch"),
	}
}

// Run blocks until ctx is cancelled, rebuilding after each trigger.
// Rebuild failures are logged and the loop keeps running; in watch mode
// a broken script is a thing to fix, not a reason to exit.
func (r *Runner) Run(ctx context.Context) error {
	r.watcher.Start(ctx)
	defer r.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case changed, ok := <-r.watcher.Triggers():
			if !ok {
				return nil
			}
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			r.logger.Infow("rebuilding", "changed", len(changed))
			if err := r.rebuild(ctx, changed); err != nil {
				r.logger.Errorw("rebuild failed", "error", err)
			}
		}
	}
}
