package chess

import (
	"context"
	"fmt"
	"strconv"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

const (
	MinMoveTimeMs = 50
	maxSkillLevel = 20
)

type CalibrationPoint struct {
	Rating     int `yaml:"rating" json:"rating"`
	MoveTimeMs int `yaml:"movetime_ms" json:"movetime_ms"`
}

var DefaultCalibration = []CalibrationPoint{
	{Rating: 800, MoveTimeMs: 100},
	{Rating: 1200, MoveTimeMs: 200},
	{Rating: 1600, MoveTimeMs: 400},
	{Rating: 2000, MoveTimeMs: 700},
	{Rating: 2400, MoveTimeMs: 1200},
	{Rating: 2800, MoveTimeMs: 2000},
	{Rating: 3200, MoveTimeMs: 3000},
}

type StrengthConfig struct {
	EloMin       int `yaml:"elo_min"`
	EloMax       int `yaml:"elo_max"`
	LowTierBelow int `yaml:"low_tier_below"`
	HighTierFrom int `yaml:"high_tier_from"`
	MidSkillMin  int `yaml:"mid_skill_min"`
	MidSkillMax  int `yaml:"mid_skill_max"`
	LowThreads   int `yaml:"low_threads"`
	LowHashMB    int `yaml:"low_hash_mb"`
	MidThreads   int `yaml:"mid_threads"`
	MidHashMB    int `yaml:"mid_hash_mb"`
	MaxThreads   int `yaml:"max_threads"`
	MaxHashMB    int `yaml:"max_hash_mb"`

	Calibration   []CalibrationPoint `yaml:"calibration"`
	MinMoveTimeMs int                `yaml:"min_movetime_ms"`
}

func DefaultStrengthConfig() StrengthConfig {
	return StrengthConfig{
		EloMin:        1320,
		EloMax:        3190,
		LowTierBelow:  1600,
		HighTierFrom:  2400,
		MidSkillMin:   3,
		MidSkillMax:   15,
		LowThreads:    1,
		LowHashMB:     16,
		MidThreads:    2,
		MidHashMB:     64,
		MaxThreads:    4,
		MaxHashMB:     256,
		Calibration:   append([]CalibrationPoint(nil), DefaultCalibration...),
		MinMoveTimeMs: MinMoveTimeMs,
	}
}

func ValidateStrengthConfig(c StrengthConfig) error {
	if c.EloMin <= 0 || c.EloMax < c.EloMin {
		return fmt.Errorf("invalid elo range %d-%d", c.EloMin, c.EloMax)
	}
	if c.LowTierBelow > c.HighTierFrom {
		return fmt.Errorf("low tier bound %d above high tier bound %d", c.LowTierBelow, c.HighTierFrom)
	}
	if c.MidSkillMin < 0 || c.MidSkillMax > maxSkillLevel || c.MidSkillMin > c.MidSkillMax {
		return fmt.Errorf("invalid mid-tier skill range %d-%d", c.MidSkillMin, c.MidSkillMax)
	}
	if c.MaxThreads <= 0 || c.MaxHashMB <= 0 || c.LowThreads <= 0 || c.LowHashMB <= 0 || c.MidThreads <= 0 || c.MidHashMB <= 0 {
		return fmt.Errorf("threads and hash sizes must be > 0")
	}
	if c.MinMoveTimeMs <= 0 {
		return fmt.Errorf("min movetime must be > 0: %d", c.MinMoveTimeMs)
	}
	return ValidateCalibration(c.Calibration)
}

// ValidateCalibration requires strictly ascending ratings and non-decreasing
// move times so the curve is monotone.
func ValidateCalibration(points []CalibrationPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("calibration requires at least one point")
	}
	for i, p := range points {
		if p.MoveTimeMs <= 0 {
			return fmt.Errorf("calibration point %d: movetime must be > 0: %d", i, p.MoveTimeMs)
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if p.Rating <= prev.Rating {
			return fmt.Errorf("calibration ratings must ascend: %d after %d", p.Rating, prev.Rating)
		}
		if p.MoveTimeMs < prev.MoveTimeMs {
			return fmt.Errorf("calibration movetime must not decrease: %d after %d", p.MoveTimeMs, prev.MoveTimeMs)
		}
	}
	return nil
}

// MoveTimeForRating interpolates linearly between calibration points, clamps
// outside them and never returns less than floorMs.
func MoveTimeForRating(points []CalibrationPoint, rating, floorMs int) int {
	if floorMs <= 0 {
		floorMs = MinMoveTimeMs
	}
	if len(points) == 0 {
		return floorMs
	}
	ms := points[len(points)-1].MoveTimeMs
	switch {
	case rating <= points[0].Rating:
		ms = points[0].MoveTimeMs
	case rating >= points[len(points)-1].Rating:
	default:
		for i := 1; i < len(points); i++ {
			lo, hi := points[i-1], points[i]
			if rating > hi.Rating {
				continue
			}
			span := hi.Rating - lo.Rating
			ms = lo.MoveTimeMs + (hi.MoveTimeMs-lo.MoveTimeMs)*(rating-lo.Rating)/span
			break
		}
	}
	if ms < floorMs {
		ms = floorMs
	}
	return ms
}

type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
	TierFull Tier = "full"
)

// StrengthProfile is the full set of engine knobs derived from one rating.
type StrengthProfile struct {
	Rating        int  `json:"rating"`
	Tier          Tier `json:"tier"`
	Skill         int  `json:"skill"`
	Threads       int  `json:"threads"`
	HashMB        int  `json:"hash_mb"`
	LimitStrength bool `json:"limit_strength"`
	MoveTimeMs    int  `json:"movetime_ms"`
}

// EloRange narrows the configured range by what the engine advertises.
func EloRange(cfg StrengthConfig, caps uci.Capabilities) (lo, hi int) {
	lo, hi = cfg.EloMin, cfg.EloMax
	if engLo, engHi, ok := caps.Range("UCI_Elo"); ok {
		if engLo > lo {
			lo = engLo
		}
		if engHi < hi {
			hi = engHi
		}
		if lo > hi {
			lo, hi = engLo, engHi
		}
	}
	return lo, hi
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ComputeProfile maps a rating onto engine knobs. The rating is clamped into
// [lo, hi] first.
func ComputeProfile(cfg StrengthConfig, rating, lo, hi int) StrengthProfile {
	rating = clampInt(rating, lo, hi)
	p := StrengthProfile{
		Rating:        rating,
		LimitStrength: true,
		MoveTimeMs:    MoveTimeForRating(cfg.Calibration, rating, cfg.MinMoveTimeMs),
	}
	switch {
	case rating < cfg.LowTierBelow:
		p.Tier = TierLow
		p.Skill = 0
		p.Threads = cfg.LowThreads
		p.HashMB = cfg.LowHashMB
	case rating < cfg.HighTierFrom:
		p.Tier = TierMid
		span := cfg.HighTierFrom - cfg.LowTierBelow
		p.Skill = cfg.MidSkillMin
		if span > 0 {
			p.Skill += ((cfg.MidSkillMax-cfg.MidSkillMin)*(rating-cfg.LowTierBelow) + span/2) / span
		}
		p.Threads = min(cfg.MidThreads, cfg.MaxThreads)
		p.HashMB = min(cfg.MidHashMB, cfg.MaxHashMB)
	default:
		p.Tier = TierHigh
		p.Skill = maxSkillLevel
		p.Threads = cfg.MaxThreads
		p.HashMB = cfg.MaxHashMB
		if rating >= hi {
			p.LimitStrength = false
		}
	}
	return p
}

func fullStrengthProfile(cfg StrengthConfig) StrengthProfile {
	return StrengthProfile{
		Rating:        cfg.EloMax,
		Tier:          TierFull,
		Skill:         maxSkillLevel,
		Threads:       cfg.MaxThreads,
		HashMB:        cfg.MaxHashMB,
		LimitStrength: false,
		MoveTimeMs:    MoveTimeForRating(cfg.Calibration, cfg.EloMax, cfg.MinMoveTimeMs),
	}
}

// applyProfile issues stop, sync, the option block and a final sync.
func applyProfile(ctx context.Context, c *uci.Conn, p StrengthProfile) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	opts := [][2]string{
		{"Threads", strconv.Itoa(p.Threads)},
		{"Hash", strconv.Itoa(p.HashMB)},
		{"Skill Level", strconv.Itoa(p.Skill)},
		{"UCI_LimitStrength", strconv.FormatBool(p.LimitStrength)},
	}
	if p.LimitStrength {
		opts = append(opts, [2]string{"UCI_Elo", strconv.Itoa(p.Rating)})
	}
	for _, kv := range opts {
		if err := c.SetOption(kv[0], kv[1]); err != nil {
			return fmt.Errorf("apply option %s: %w", kv[0], err)
		}
	}
	return c.Sync(ctx)
}
