package chess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

func TestMoveTimeForRatingExactAtCalibrationPoints(t *testing.T) {
	for _, p := range DefaultCalibration {
		assert.Equal(t, p.MoveTimeMs, MoveTimeForRating(DefaultCalibration, p.Rating, MinMoveTimeMs), "rating %d", p.Rating)
	}
}

func TestMoveTimeForRatingMonotone(t *testing.T) {
	prev := 0
	for rating := 0; rating <= 4000; rating += 7 {
		ms := MoveTimeForRating(DefaultCalibration, rating, MinMoveTimeMs)
		require.GreaterOrEqual(t, ms, prev, "rating %d", rating)
		require.GreaterOrEqual(t, ms, MinMoveTimeMs)
		prev = ms
	}
	assert.Equal(t, 100, MoveTimeForRating(DefaultCalibration, 100, MinMoveTimeMs))
	assert.Equal(t, 3000, MoveTimeForRating(DefaultCalibration, 5000, MinMoveTimeMs))
	assert.Equal(t, 300, MoveTimeForRating(DefaultCalibration, 1400, MinMoveTimeMs))
}

func TestMoveTimeForRatingFloor(t *testing.T) {
	points := []CalibrationPoint{{Rating: 1000, MoveTimeMs: 10}, {Rating: 2000, MoveTimeMs: 20}}
	assert.Equal(t, MinMoveTimeMs, MoveTimeForRating(points, 1500, MinMoveTimeMs))
	assert.Equal(t, 75, MoveTimeForRating(points, 1500, 75))
}

func TestValidateCalibration(t *testing.T) {
	require.NoError(t, ValidateCalibration(DefaultCalibration))
	assert.Error(t, ValidateCalibration(nil))
	assert.Error(t, ValidateCalibration([]CalibrationPoint{{Rating: 1200, MoveTimeMs: 200}, {Rating: 1200, MoveTimeMs: 300}}))
	assert.Error(t, ValidateCalibration([]CalibrationPoint{{Rating: 1200, MoveTimeMs: 300}, {Rating: 1600, MoveTimeMs: 200}}))
	assert.Error(t, ValidateCalibration([]CalibrationPoint{{Rating: 1200, MoveTimeMs: 0}}))
}

func TestComputeProfileClampsRating(t *testing.T) {
	cfg := DefaultStrengthConfig()
	for _, tc := range []struct {
		rating int
		want   int
	}{
		{rating: -50, want: 1320},
		{rating: 400, want: 1320},
		{rating: 1320, want: 1320},
		{rating: 2000, want: 2000},
		{rating: 3190, want: 3190},
		{rating: 9999, want: 3190},
	} {
		p := ComputeProfile(cfg, tc.rating, cfg.EloMin, cfg.EloMax)
		assert.Equal(t, tc.want, p.Rating, "rating %d", tc.rating)
	}
}

func TestComputeProfileTiers(t *testing.T) {
	cfg := DefaultStrengthConfig()

	low := ComputeProfile(cfg, 1500, cfg.EloMin, cfg.EloMax)
	assert.Equal(t, TierLow, low.Tier)
	assert.Equal(t, 0, low.Skill)
	assert.Equal(t, 1, low.Threads)
	assert.Equal(t, 16, low.HashMB)
	assert.True(t, low.LimitStrength)

	mid := ComputeProfile(cfg, 2000, cfg.EloMin, cfg.EloMax)
	assert.Equal(t, TierMid, mid.Tier)
	assert.Equal(t, 9, mid.Skill)
	assert.Equal(t, 2, mid.Threads)
	assert.Equal(t, 64, mid.HashMB)
	assert.Equal(t, 700, mid.MoveTimeMs)

	assert.Equal(t, 3, ComputeProfile(cfg, 1600, cfg.EloMin, cfg.EloMax).Skill)
	assert.Equal(t, 15, ComputeProfile(cfg, 2399, cfg.EloMin, cfg.EloMax).Skill)

	high := ComputeProfile(cfg, 2600, cfg.EloMin, cfg.EloMax)
	assert.Equal(t, TierHigh, high.Tier)
	assert.Equal(t, 20, high.Skill)
	assert.Equal(t, 4, high.Threads)
	assert.Equal(t, 256, high.HashMB)
	assert.True(t, high.LimitStrength)

	top := ComputeProfile(cfg, 5000, cfg.EloMin, cfg.EloMax)
	assert.False(t, top.LimitStrength)
}

func TestComputeProfileMidThreadsCappedByMax(t *testing.T) {
	cfg := DefaultStrengthConfig()
	cfg.MaxThreads = 1
	p := ComputeProfile(cfg, 2000, cfg.EloMin, cfg.EloMax)
	assert.Equal(t, 1, p.Threads)
}

func TestEloRangeNarrowedByEngine(t *testing.T) {
	cfg := DefaultStrengthConfig()
	lo, hi := 1500, 2850
	caps := uci.Capabilities{Options: []uci.Option{{Name: "UCI_Elo", Type: "spin", Min: &lo, Max: &hi}}}

	gotLo, gotHi := EloRange(cfg, caps)
	assert.Equal(t, 1500, gotLo)
	assert.Equal(t, 2850, gotHi)

	gotLo, gotHi = EloRange(cfg, uci.Capabilities{})
	assert.Equal(t, cfg.EloMin, gotLo)
	assert.Equal(t, cfg.EloMax, gotHi)
}

func TestValidateStrengthConfig(t *testing.T) {
	require.NoError(t, ValidateStrengthConfig(DefaultStrengthConfig()))

	bad := DefaultStrengthConfig()
	bad.EloMax = 1000
	assert.Error(t, ValidateStrengthConfig(bad))

	bad = DefaultStrengthConfig()
	bad.MidSkillMax = 25
	assert.Error(t, ValidateStrengthConfig(bad))

	bad = DefaultStrengthConfig()
	bad.MaxThreads = 0
	assert.Error(t, ValidateStrengthConfig(bad))
}
