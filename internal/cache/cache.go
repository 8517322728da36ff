// Package cache is the read-through snapshot cache. Providers are consulted
// in order and every lookup reports a typed outcome per provider, so a miss
// and a broken tier are never confused.
package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrMiss is returned by a Provider that holds no live value for a key.
var ErrMiss = errors.New("cache miss")

type Provider interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Status string

const (
	StatusHit   Status = "hit"
	StatusMiss  Status = "miss"
	StatusError Status = "error"
)

type Outcome struct {
	Provider string
	Status   Status
	Err      error
}

// Result is the outcome of one chain lookup. Value is set only when Hit.
type Result struct {
	Value    []byte
	Hit      bool
	Outcomes []Outcome
}

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquarium_cache_lookups_total",
		Help: "Snapshot cache lookups by provider and outcome",
	}, []string{"provider", "status"})

	writeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquarium_cache_write_failures_total",
		Help: "Snapshot cache writes or deletes that failed, by provider",
	}, []string{"provider"})
)

// Chain is an ordered list of providers. A nil or empty Chain always misses.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, log: logger}
}

func (c *Chain) Enabled() bool {
	return c != nil && len(c.providers) > 0
}

func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Get walks the providers in order and stops at the first hit. Providers
// consulted before the hit are backfilled with the value.
func (c *Chain) Get(ctx context.Context, key string) Result {
	var res Result
	if !c.Enabled() {
		return res
	}
	for i, p := range c.providers {
		value, err := p.Get(ctx, key)
		switch {
		case err == nil:
			res.Outcomes = append(res.Outcomes, Outcome{Provider: p.Name(), Status: StatusHit})
			lookups.WithLabelValues(p.Name(), string(StatusHit)).Inc()
			res.Value = value
			res.Hit = true
			c.backfill(ctx, c.providers[:i], key, value)
			return res
		case errors.Is(err, ErrMiss):
			res.Outcomes = append(res.Outcomes, Outcome{Provider: p.Name(), Status: StatusMiss})
			lookups.WithLabelValues(p.Name(), string(StatusMiss)).Inc()
		default:
			res.Outcomes = append(res.Outcomes, Outcome{Provider: p.Name(), Status: StatusError, Err: err})
			lookups.WithLabelValues(p.Name(), string(StatusError)).Inc()
			c.log.Warn("cache provider get failed", "provider", p.Name(), "key", key, "err", err)
		}
	}
	return res
}

// Set writes value to every provider; failures are logged and counted but
// never returned, the store stays authoritative.
func (c *Chain) Set(ctx context.Context, key string, value []byte) {
	if !c.Enabled() {
		return
	}
	for _, p := range c.providers {
		if err := p.Set(ctx, key, value); err != nil {
			writeFailures.WithLabelValues(p.Name()).Inc()
			c.log.Warn("cache provider set failed", "provider", p.Name(), "key", key, "err", err)
		}
	}
}

func (c *Chain) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	for _, p := range c.providers {
		if err := p.Delete(ctx, key); err != nil {
			writeFailures.WithLabelValues(p.Name()).Inc()
			c.log.Warn("cache provider delete failed", "provider", p.Name(), "key", key, "err", err)
		}
	}
}

func (c *Chain) backfill(ctx context.Context, earlier []Provider, key string, value []byte) {
	for _, p := range earlier {
		if err := p.Set(ctx, key, value); err != nil {
			writeFailures.WithLabelValues(p.Name()).Inc()
			c.log.Warn("cache backfill failed", "provider", p.Name(), "key", key, "err", err)
		}
	}
}
