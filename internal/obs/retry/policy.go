package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Config tunes PublishPolicy. Zero fields take the defaults below.
type Config struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay"`
}

const (
	defaultAttempts  = 6
	defaultBaseDelay = 200 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
)

// PublishPolicy retries broker writes with jittered exponential backoff.
// Cancellation and deadline errors end the loop at once.
func PublishPolicy(name string, cfg Config, log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	log = log.With(zap.String("policy", name))

	return Policy{
		Name:      name,
		Attempts:  cfg.Attempts,
		Backoff:   ExpoJitter{Base: cfg.BaseDelay, Max: cfg.MaxDelay, Jitter: 0.2},
		Retryable: func(err error) bool { return !isContextErr(err) },
		OnAttempt: func(i int, err error) {
			log.Warn("publish attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if !isContextErr(err) {
				log.Error("publish gave up", zap.Error(err))
			}
		},
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
