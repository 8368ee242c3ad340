// Package cache implements the fingerprint-keyed query cache: at most
// one concurrent compute per fingerprint, TTL expiry with LRU eviction,
// progressive refinement against a deadline, and a per-pattern latency
// optimiser that raises the default approximation level when a pattern
// runs persistently slow.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	lru "github.com/opencoff/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/pokertool/core/internal/model"
)

// ComputeFunc produces a value at the given approximation level. Higher
// levels are expected to be faster and rougher; the cache never
// interprets the level's meaning, only tracks the highest seen.
type ComputeFunc func(ctx context.Context, approximationLevel int) (value any, confidence float64, err error)

// Result is returned from Query.
type Result struct {
	Value         any
	Confidence    float64
	Cached        bool
	Approximated  bool
	Level         int
	ComputationMS float64
}

// Config configures a Cache.
type Config struct {
	MaxSize       int // default 10000
	TTL           time.Duration // default 300s
	SlowPatternMS float64       // p95 threshold that raises a pattern's default level, default 200ms
	Clock         quartz.Clock
}

// DefaultConfig returns the documented cache defaults.
func DefaultConfig() Config {
	return Config{MaxSize: 10000, TTL: 300 * time.Second, SlowPatternMS: 200, Clock: quartz.NewReal()}
}

type entry struct {
	value      any
	confidence float64
	level      int
	expiresAt  time.Time
}

// flightResult is the value passed through singleflight.Group.Do; it
// must be a package-level type so the type assertion after Do matches
// the type produced by computeProgressive regardless of call site.
type flightResult struct {
	res Result
	err error
}

// Cache is the fingerprint-keyed query cache.
type Cache struct {
	cfg   Config
	group singleflight.Group

	mu      sync.Mutex
	entries *lru.Cache

	optimiser *latencyOptimiser
}

// New builds a Cache.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 300 * time.Second
	}
	if cfg.SlowPatternMS <= 0 {
		cfg.SlowPatternMS = 200
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	l, err := lru.New(cfg.MaxSize)
	if err != nil {
		return nil, model.NewError(model.KindCache, "cache.New", "lru construction failed", err)
	}
	return &Cache{
		cfg:       cfg,
		entries:   l,
		optimiser: newLatencyOptimiser(cfg.SlowPatternMS),
	}, nil
}

// Query resolves fp, reusing a fresh cached result at level >= minLevel
// if one exists, otherwise computing it. Computation happens at most
// once concurrently per fingerprint across callers (singleflight).
// When deadline allows, compute is invoked at successively higher
// approximation levels (progressive refinement), and the best result
// obtained within the deadline is returned and cached.
func (c *Cache) Query(ctx context.Context, fp model.Fingerprint, compute ComputeFunc, deadline time.Duration, minLevel int) (Result, error) {
	if cached, ok := c.lookup(fp, minLevel); ok {
		return cached, nil
	}

	pattern := fp.Pattern()
	startLevel := c.optimiser.defaultLevel(pattern)
	if startLevel < minLevel {
		startLevel = minLevel
	}
	if startLevel < 1 {
		startLevel = 1
	}

	v, err, _ := c.group.Do(string(fp), func() (any, error) {
		return c.computeProgressive(ctx, fp, compute, deadline, startLevel, pattern)
	})
	if err != nil {
		return Result{}, err
	}
	fr := v.(flightResult)
	return fr.res, fr.err
}

func (c *Cache) computeProgressive(ctx context.Context, fp model.Fingerprint, compute ComputeFunc, deadline time.Duration, startLevel int, pattern string) (any, error) {
	deadlineAt := c.cfg.Clock.Now().Add(deadline)
	level := startLevel
	var best Result
	haveResult := false

	for {
		remaining := time.Until(deadlineAt)
		if remaining <= 0 && haveResult {
			break
		}
		callCtx := ctx
		var cancel context.CancelFunc
		if deadline > 0 {
			callCtx, cancel = context.WithDeadline(ctx, deadlineAt)
		}
		start := c.cfg.Clock.Now()
		value, confidence, err := compute(callCtx, level)
		if cancel != nil {
			cancel()
		}
		elapsed := c.cfg.Clock.Now().Sub(start)
		c.optimiser.record(pattern, durationMS(elapsed))

		if err != nil {
			if haveResult {
				break
			}
			return flightResult{err: err}, nil
		}

		best = Result{
			Value:         value,
			Confidence:    confidence,
			Level:         level,
			Approximated:  true,
			ComputationMS: durationMS(elapsed),
		}
		haveResult = true
		c.store(fp, best)

		if time.Until(deadlineAt) <= 0 {
			break
		}
		level++
		if level > maxApproximationLevel {
			break
		}
	}

	return flightResult{res: best}, nil
}

const maxApproximationLevel = 32

func (c *Cache) lookup(fp model.Fingerprint, minLevel int) (Result, bool) {
	c.mu.Lock()
	v, ok := c.entries.Get(string(fp))
	c.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	e := v.(entry)
	if c.cfg.Clock.Now().After(e.expiresAt) {
		c.mu.Lock()
		c.entries.Remove(string(fp))
		c.mu.Unlock()
		return Result{}, false
	}
	if e.level < minLevel {
		return Result{}, false
	}
	return Result{Value: e.value, Confidence: e.confidence, Level: e.level, Cached: true, Approximated: e.level > 0}, true
}

func (c *Cache) store(fp model.Fingerprint, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries.Get(string(fp)); ok {
		if e := existing.(entry); e.level > res.Level && c.cfg.Clock.Now().Before(e.expiresAt) {
			return
		}
	}
	c.entries.Add(string(fp), entry{
		value:      res.Value,
		confidence: res.Confidence,
		level:      res.Level,
		expiresAt:  c.cfg.Clock.Now().Add(c.cfg.TTL),
	})
}

// Len reports the number of live cache entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
