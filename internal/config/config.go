// Package config loads the detection core's configuration from an HCL
// file: gohcl struct tags on nested blocks, decoded through a
// Default-then-overlay constructor, covering the full option set the
// detection core recognises.
//
// Unknown top-level blocks or attributes are rejected at parse time: no
// struct field in this package declares an hcl:",remain" catch-all, so
// gohcl.DecodeBody surfaces any unrecognised key as a diagnostic at
// startup.
package config

import (
	"os"
	"strconv"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pokertool/core/internal/model"
)

// Capture is the capture.* block.
type Capture struct {
	Backend string `hcl:"backend,optional"`
	MaxFPS  int    `hcl:"max_fps,optional"`
}

// Strategies is the strategies.* block.
type Strategies struct {
	Enabled   []string `hcl:"enabled,optional"`
	TimeoutMS int      `hcl:"timeout_ms,optional"`
}

// Ensemble is the ensemble.* block.
type Ensemble struct {
	Method       string  `hcl:"method,optional"`
	LearningRate float64 `hcl:"learning_rate,optional"`
	MinWeight    float64 `hcl:"min_weight,optional"`
}

// Dispatcher is the dispatcher.* block.
type Dispatcher struct {
	StaleMS int `hcl:"stale_ms,optional"`
}

// Recorder is the recorder.* block. Enabled is a pointer since HCL's bool
// type cannot distinguish "absent" from "set to false"; nil means fall
// back to the documented default of true.
type Recorder struct {
	Enabled *bool `hcl:"enabled,optional"`
}

// IsEnabled resolves the recorder.enabled tri-state, defaulting to true.
func (r Recorder) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// Cache is the cache.* block.
type Cache struct {
	MaxSize int `hcl:"max_size,optional"`
	TTLS    int `hcl:"ttl_s,optional"`
}

// Breaker is the breaker.* block.
type Breaker struct {
	FailureThreshold int `hcl:"failure_threshold,optional"`
	TimeoutS         int `hcl:"timeout_s,optional"`
}

// Telemetry is the telemetry.* block.
type Telemetry struct {
	SlowOpMS   int    `hcl:"slow_op_ms,optional"`
	ProfileDir string `hcl:"profile_dir,optional"`
}

// Compliance is one labeled compliance block, keyed by site name.
type Compliance struct {
	Site               string   `hcl:"site,label"`
	HUDEnabled         bool     `hcl:"hud_enabled,optional"`
	TrackingEnabled    bool     `hcl:"tracking_enabled,optional"`
	RestrictedFeatures []string `hcl:"restricted_features,optional"`
	MaxTables          *int     `hcl:"max_tables,optional"`
}

// Config is the root configuration document.
type Config struct {
	Capture    Capture      `hcl:"capture,block"`
	Strategies Strategies   `hcl:"strategies,block"`
	Ensemble   Ensemble     `hcl:"ensemble,block"`
	Dispatcher Dispatcher   `hcl:"dispatcher,block"`
	Recorder   Recorder     `hcl:"recorder,block"`
	Cache      Cache        `hcl:"cache,block"`
	Breaker    Breaker      `hcl:"breaker,block"`
	Telemetry  Telemetry    `hcl:"telemetry,block"`
	Compliance []Compliance `hcl:"compliance,block"`
}

// Default returns the documented defaults for every recognised block.
func Default() Config {
	return Config{
		Capture:    Capture{Backend: "auto", MaxFPS: 10},
		Strategies: Strategies{Enabled: nil, TimeoutMS: 50},
		Ensemble:   Ensemble{Method: "weighted_vote", LearningRate: 0.1, MinWeight: 0.01},
		Dispatcher: Dispatcher{StaleMS: 30000},
		Recorder:   Recorder{Enabled: nil},
		Cache:      Cache{MaxSize: 10000, TTLS: 300},
		Breaker:    Breaker{FailureThreshold: 5, TimeoutS: 60},
		Telemetry:  Telemetry{SlowOpMS: 100, ProfileDir: ""},
	}
}

// Load parses an HCL configuration file at path, applying defaults for
// any field left unset inside a block, then layering environment
// overrides. Every top-level block except compliance must appear in the
// file (an empty block such as `cache {}` is enough); a file that omits
// one fails to decode. A parse or decode error is fatal: the caller
// should abort startup rather than run with a partially-decoded
// configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, model.NewError(model.KindConfig, "config.Load", diags.Error(), nil)
	}

	var doc Config
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return Config{}, model.NewError(model.KindConfig, "config.Load", diags.Error(), nil)
	}
	mergeDefaults(&cfg, doc)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// mergeDefaults overlays zero-valued fields in doc with cfg's defaults,
// then copies doc's non-zero fields and blocks into cfg.
func mergeDefaults(cfg *Config, doc Config) {
	if doc.Capture.Backend != "" {
		cfg.Capture.Backend = doc.Capture.Backend
	}
	if doc.Capture.MaxFPS != 0 {
		cfg.Capture.MaxFPS = doc.Capture.MaxFPS
	}
	if len(doc.Strategies.Enabled) > 0 {
		cfg.Strategies.Enabled = doc.Strategies.Enabled
	}
	if doc.Strategies.TimeoutMS != 0 {
		cfg.Strategies.TimeoutMS = doc.Strategies.TimeoutMS
	}
	if doc.Ensemble.Method != "" {
		cfg.Ensemble.Method = doc.Ensemble.Method
	}
	if doc.Ensemble.LearningRate != 0 {
		cfg.Ensemble.LearningRate = doc.Ensemble.LearningRate
	}
	if doc.Ensemble.MinWeight != 0 {
		cfg.Ensemble.MinWeight = doc.Ensemble.MinWeight
	}
	if doc.Dispatcher.StaleMS != 0 {
		cfg.Dispatcher.StaleMS = doc.Dispatcher.StaleMS
	}
	if doc.Recorder.Enabled != nil {
		cfg.Recorder.Enabled = doc.Recorder.Enabled
	}
	if doc.Cache.MaxSize != 0 {
		cfg.Cache.MaxSize = doc.Cache.MaxSize
	}
	if doc.Cache.TTLS != 0 {
		cfg.Cache.TTLS = doc.Cache.TTLS
	}
	if doc.Breaker.FailureThreshold != 0 {
		cfg.Breaker.FailureThreshold = doc.Breaker.FailureThreshold
	}
	if doc.Breaker.TimeoutS != 0 {
		cfg.Breaker.TimeoutS = doc.Breaker.TimeoutS
	}
	if doc.Telemetry.SlowOpMS != 0 {
		cfg.Telemetry.SlowOpMS = doc.Telemetry.SlowOpMS
	}
	if doc.Telemetry.ProfileDir != "" {
		cfg.Telemetry.ProfileDir = doc.Telemetry.ProfileDir
	}
	cfg.Compliance = doc.Compliance
}

// Environment variable names for the recognised overrides.
const (
	EnvCaptureBackend    = "POKERTOOL_CAPTURE_BACKEND"
	EnvCaptureMaxFPS     = "POKERTOOL_CAPTURE_MAX_FPS"
	EnvDispatcherStaleMS = "POKERTOOL_DISPATCHER_STALE_MS"
)

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvCaptureBackend); v != "" {
		cfg.Capture.Backend = v
	}
	if v := os.Getenv(EnvCaptureMaxFPS); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Capture.MaxFPS = n
		}
	}
	if v := os.Getenv(EnvDispatcherStaleMS); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatcher.StaleMS = n
		}
	}
}

// ComplianceFor returns the matching compliance block for site, if any.
func (c Config) ComplianceFor(site string) (Compliance, bool) {
	for _, comp := range c.Compliance {
		if comp.Site == site {
			return comp, true
		}
	}
	return Compliance{}, false
}
