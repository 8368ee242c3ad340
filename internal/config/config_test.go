package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pokertool.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAppliedWhenFieldOmitted(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `
capture {
  backend = "x11"
}
strategies {}
ensemble {}
dispatcher {}
recorder {}
cache {}
breaker {}
telemetry {}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x11", cfg.Capture.Backend)
	assert.Equal(t, 10, cfg.Capture.MaxFPS, "max_fps default carried over when unset")
	assert.Equal(t, "weighted_vote", cfg.Ensemble.Method)
	assert.InDelta(t, 0.1, cfg.Ensemble.LearningRate, 1e-9)
	assert.Equal(t, 30000, cfg.Dispatcher.StaleMS)
	assert.Equal(t, 10000, cfg.Cache.MaxSize)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 100, cfg.Telemetry.SlowOpMS)
}

func TestLoad_ComplianceBlocksBySite(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `
capture {}
strategies {}
ensemble {}
dispatcher {}
recorder {}
cache {}
breaker {}
telemetry {}

compliance "pokerstars" {
  hud_enabled          = true
  tracking_enabled     = true
  restricted_features  = ["auto_play"]
  max_tables           = 4
}

compliance "ignition" {
  hud_enabled      = false
  tracking_enabled = false
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	stars, ok := cfg.ComplianceFor("pokerstars")
	require.True(t, ok)
	assert.True(t, stars.HUDEnabled)
	require.NotNil(t, stars.MaxTables)
	assert.Equal(t, 4, *stars.MaxTables)
	assert.Equal(t, []string{"auto_play"}, stars.RestrictedFeatures)

	ignition, ok := cfg.ComplianceFor("ignition")
	require.True(t, ok)
	assert.False(t, ignition.HUDEnabled)
	assert.Nil(t, ignition.MaxTables)

	_, ok = cfg.ComplianceFor("unknown_site")
	assert.False(t, ok)
}

func TestLoad_UnknownAttributeRejected(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `
capture {
  backend    = "auto"
  not_a_real_field = 5
}
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedFileRejected(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `capture { backend = `)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides_TakesPrecedenceOverFile(t *testing.T) {
	path := writeTemp(t, `
capture {
  backend = "x11"
  max_fps = 15
}
`)
	t.Setenv(EnvCaptureBackend, "wayland")
	t.Setenv(EnvCaptureMaxFPS, "30")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wayland", cfg.Capture.Backend)
	assert.Equal(t, 30, cfg.Capture.MaxFPS)
}

func TestDefault_MatchesDocumentedValues(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, "auto", cfg.Capture.Backend)
	assert.Equal(t, 50, cfg.Strategies.TimeoutMS)
	assert.Equal(t, 0.01, cfg.Ensemble.MinWeight)
	assert.Nil(t, cfg.Recorder.Enabled, "recorder.enabled is unset by default")
	assert.Equal(t, 300, cfg.Cache.TTLS)
	assert.Equal(t, 60, cfg.Breaker.TimeoutS)
	assert.True(t, cfg.Recorder.IsEnabled())
}

func TestRecorder_IsEnabled_DefaultsTrueWhenAbsent(t *testing.T) {
	t.Parallel()
	assert.True(t, Recorder{}.IsEnabled())
	disabled := false
	assert.False(t, Recorder{Enabled: &disabled}.IsEnabled())
}
