package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

func writeOverride(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsMatchEngineDefaults(t *testing.T) {
	tun, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, chess.DefaultStrengthConfig(), tun.Strength)
	assert.Equal(t, chess.DefaultHumanizationPolicy(), tun.Humanization)
	assert.Equal(t, chess.DefaultReviewOptions(), tun.Review)
	assert.Equal(t, 250*time.Millisecond, tun.Search.GuardGrace)
	assert.Equal(t, 14, tun.Search.DepthFloor)

	require.Len(t, tun.Presets, len(chess.DefaultPresets))
	for name, want := range chess.DefaultPresets {
		assert.Equal(t, want, tun.Presets[name], name)
	}
}

func TestLoadOverride(t *testing.T) {
	path := writeOverride(t, `
strength:
  max_threads: 8
  calibration:
    - { rating: 1000, movetime_ms: 150 }
    - { rating: 3000, movetime_ms: 2500 }
presets:
  level9:
    rating: 3000
    policy: { multipv: 1 }
  level1:
    rating: 1400
    policy: { multipv: 3 }
`)
	tun, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, tun.Strength.MaxThreads)
	assert.Equal(t, 1320, tun.Strength.EloMin)
	assert.Len(t, tun.Strength.Calibration, 2)
	assert.Equal(t, 0.35, tun.Humanization.Temperature)

	assert.Equal(t, 3000, tun.Presets["level9"].Rating)
	assert.Equal(t, "level9", tun.Presets["level9"].Name)
	assert.Equal(t, 1400, tun.Presets["level1"].Rating)
	assert.Equal(t, 2000, tun.Presets["level5"].Rating)
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	path := writeOverride(t, `
strength:
  calibration:
    - { rating: 2000, movetime_ms: 700 }
    - { rating: 1500, movetime_ms: 900 }
`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeOverride(t, "humanization:\n  temprature: 0.5\n")
	_, err = Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyTo(t *testing.T) {
	tun, err := Load("")
	require.NoError(t, err)
	tun.Search.VerifyMoveTimeMs = 0

	cfg := chess.Config{}
	tun.ApplyTo(&cfg)
	assert.Equal(t, 0, cfg.VerifyMoveTimeMs)
	assert.Equal(t, 14, cfg.DepthFloor)
	assert.Equal(t, 256, cfg.Search.MaxInfoEntries)
	assert.Contains(t, cfg.Presets, "level8")
}
