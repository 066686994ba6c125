package limiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/metrics"
)

// Adaptive combines a Redis-backed circuit breaker shared across worker
// replicas with an in-process inflight cap per provider:model pair. The
// breaker state lives in Redis so one replica tripping on 429s slows all
// of them down.
type Adaptive struct {
	rdb         *redis.Client
	maxInflight int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	mu          sync.Mutex
	sem         map[string]chan struct{}
}

type Options struct {
	RedisURL    string
	MaxInflight int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func New(opts Options) (*Adaptive, error) {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(ro)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Adaptive{
		rdb:         c,
		maxInflight: opts.MaxInflight,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		sem:         map[string]chan struct{}{},
	}, nil
}

func (a *Adaptive) key(provider, model string) string {
	return fmt.Sprintf("readorder:cb:%s:%s", strings.ToLower(provider), strings.ToLower(model))
}

// IsOpen reports whether the breaker cooldown for provider/model is active.
func (a *Adaptive) IsOpen(ctx context.Context, provider, model string) bool {
	ts, err := a.rdb.Get(ctx, a.key(provider, model)).Int64()
	if err != nil {
		return false
	}
	return time.Now().Unix() < ts
}

// Open sets or extends the cooldown. Backoff doubles per consecutive trip
// up to maxBackoff.
func (a *Adaptive) Open(ctx context.Context, provider, model string) {
	k := a.key(provider, model)
	attempts, _ := a.rdb.Incr(ctx, k+":attempts").Result()
	d := backoffFor(attempts, a.baseBackoff, a.maxBackoff)
	until := time.Now().Add(d).Unix()
	_ = a.rdb.Set(ctx, k, until, d).Err()
	metrics.BreakerOpened(provider, model)
	log.Warn().
		Str("provider", provider).
		Str("model", model).
		Dur("cooldown", d).
		Int64("attempts", attempts).
		Msg("circuit breaker opened")
}

// backoffFor doubles the cooldown per consecutive trip and saturates at
// max. The attempt counter never resets while a provider stays broken, so
// the shift must stop growing once the cap is reached instead of
// overflowing the duration.
func backoffFor(attempts int64, base, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := int64(1); i < attempts; i++ {
		if d >= max {
			break
		}
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

// Close resets the breaker for provider/model after a successful call.
func (a *Adaptive) Close(ctx context.Context, provider, model string) {
	k := a.key(provider, model)
	deleted, _ := a.rdb.Del(ctx, k, k+":attempts").Result()
	if deleted > 0 {
		metrics.BreakerClosed(provider, model)
		log.Info().Str("provider", provider).Str("model", model).Msg("circuit breaker closed")
	}
}

// Allow reserves a local in-process slot for provider:model. Returns a
// release function and true when a slot was free.
func (a *Adaptive) Allow(provider, model string) (func(), bool) {
	key := strings.ToLower(provider) + ":" + strings.ToLower(model)
	a.mu.Lock()
	ch, ok := a.sem[key]
	if !ok {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[key] = ch
	}
	a.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return func() {}, false
	}
}

func (a *Adaptive) CloseClient() error { return a.rdb.Close() }
