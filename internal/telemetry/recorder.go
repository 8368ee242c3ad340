package telemetry

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// Config configures a Recorder.
type Config struct {
	SlowOpMS      float64 // default 100
	MaxProfiles   int     // default 50, bounded circular store
	Clock         quartz.Clock
}

// DefaultConfig returns the documented telemetry defaults.
func DefaultConfig() Config {
	return Config{SlowOpMS: 100, MaxProfiles: 50, Clock: quartz.NewReal()}
}

// Profile is a captured slow-operation record.
type Profile struct {
	Op            string
	DurationMS    float64
	T             time.Time
	CorrelationID string
}

// Recorder aggregates per-operation timings and exposes rolling
// percentiles plus a bounded slow-operation profile store.
type Recorder struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	windows  map[string]*window
	profiles []Profile // circular, capacity cfg.MaxProfiles
	profHead int
	profLen  int
}

// New builds a Recorder.
func New(cfg Config, log zerolog.Logger) *Recorder {
	if cfg.SlowOpMS <= 0 {
		cfg.SlowOpMS = 100
	}
	if cfg.MaxProfiles <= 0 {
		cfg.MaxProfiles = 50
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &Recorder{
		cfg:      cfg,
		log:      log,
		windows:  make(map[string]*window),
		profiles: make([]Profile, cfg.MaxProfiles),
	}
}

// Start begins a scoped timer for op. The caller MUST invoke the
// returned func on every exit path (success, error, cancellation) so the
// sample is always recorded, even on an early return or panic recovery.
func (r *Recorder) Start(op string) func(correlationID string) {
	start := r.cfg.Clock.Now()
	return func(correlationID string) {
		r.Record(op, r.cfg.Clock.Now().Sub(start), correlationID)
	}
}

// Record adds one duration sample for op, capturing a slow-op profile if
// it exceeds the configured threshold.
func (r *Recorder) Record(op string, d time.Duration, correlationID string) {
	ms := durationMS(d)

	r.mu.Lock()
	w, ok := r.windows[op]
	if !ok {
		w = newWindow()
		r.windows[op] = w
	}
	w.add(ms)

	if ms > r.cfg.SlowOpMS {
		r.profiles[r.profHead] = Profile{Op: op, DurationMS: ms, T: r.cfg.Clock.Now(), CorrelationID: correlationID}
		r.profHead = (r.profHead + 1) % len(r.profiles)
		if r.profLen < len(r.profiles) {
			r.profLen++
		}
	}
	r.mu.Unlock()

	if ms > r.cfg.SlowOpMS {
		r.log.Warn().Str("op", op).Float64("duration_ms", ms).Str("correlation_id", correlationID).Msg("telemetry: slow operation")
	}
}

// Stats returns the current aggregate for op.
func (r *Recorder) Stats(op string) Aggregate {
	r.mu.Lock()
	w, ok := r.windows[op]
	r.mu.Unlock()
	if !ok {
		return Aggregate{}
	}
	return aggregate(w.values())
}

// Profiles returns the captured slow-operation profiles, most recent last.
func (r *Recorder) Profiles() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profLen < len(r.profiles) {
		return append([]Profile(nil), r.profiles[:r.profLen]...)
	}
	out := make([]Profile, 0, len(r.profiles))
	out = append(out, r.profiles[r.profHead:]...)
	out = append(out, r.profiles[:r.profHead]...)
	return out
}

// WeightPenalty computes the ensemble weight penalty factor for a
// strategy whose p95 latency is compared against its budget.
func WeightPenalty(p95MS, budgetMS float64) float64 {
	if budgetMS <= 0 || p95MS <= budgetMS {
		return 1.0
	}
	ratio := budgetMS / p95MS
	if ratio < 0.5 {
		return 0.5
	}
	return ratio
}
