// Package janitor periodically drops refresh-token records whose stored
// expiration has passed. Verification already rejects them, so this only
// bounds table growth.
package janitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type Config struct {
	Enabled bool          `mapstructure:"enabled"`
	Tick    time.Duration `mapstructure:"tick"`
}

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

var (
	mPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "janitor_refresh_tokens_purged_total", Help: "Expired refresh tokens deleted",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "janitor_errors_total", Help: "Errors in janitor loop",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "janitor_loop_duration_seconds", Help: "Janitor tick duration",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	log    *zap.Logger
	purger Purger
	tick   time.Duration
}

func New(log *zap.Logger, purger Purger, cfg Config) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Hour
	}
	return &Runner{log: log.With(zap.String("component", "janitor")), purger: purger, tick: cfg.Tick}
}

func (r *Runner) once(ctx context.Context) int64 {
	start := time.Now()
	defer func() { mLoopDur.Observe(time.Since(start).Seconds()) }()

	n, err := r.purger.PurgeExpired(ctx)
	if err != nil {
		mErr.Inc()
		r.log.Warn("purge error", zap.Error(err))
		return 0
	}
	if n > 0 {
		mPurged.Add(float64(n))
		r.log.Debug("purged expired refresh tokens", zap.Int64("count", n))
	}
	return n
}

// Run purges once immediately and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.once(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.once(ctx)
		}
	}
}
