// Package ratelimiter throttles repeated actions per key with a token
// bucket. Buckets live in memory or in Redis.
package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config is one bucket shape. Capacity is the burst; RefillRate tokens are
// added every RefillInterval.
type Config struct {
	Capacity       int           `env:"SIGNIN_RATE_CAPACITY" envDefault:"5"`
	RefillRate     int           `env:"SIGNIN_RATE_REFILL" envDefault:"1"`
	RefillInterval time.Duration `env:"SIGNIN_RATE_INTERVAL" envDefault:"1m"`
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Store keeps bucket state. Take refills the bucket for the elapsed time and
// removes n tokens when enough are left. A denied take leaves the bucket
// untouched and reports a negative remaining count.
type Store interface {
	Take(ctx context.Context, key string, n int, cfg Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (r Result) Allowed() bool { return r.Remaining >= 0 }

// RetryAfter is how long a denied caller should wait; zero when allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}

type Bucket struct {
	store  Store
	config Config
	prefix string
}

// NewBucket returns a limiter whose keys are namespaced by prefix.
func NewBucket(store Store, cfg Config, prefix string) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: cfg, prefix: prefix}, nil
}

func (b *Bucket) Allow(ctx context.Context, key string) (Result, error) {
	return b.AllowN(ctx, key, 1)
}

func (b *Bucket) AllowN(ctx context.Context, key string, n int) (Result, error) {
	if n <= 0 {
		return Result{}, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	remaining, resetAt, err := b.store.Take(ctx, b.prefix+key, n, b.config)
	if err != nil {
		return Result{}, err
	}
	return Result{Limit: b.config.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// Reset refills the bucket, for example after a successful sign-in.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, b.prefix+key)
}
