// Package tuning loads the bridge heuristics (strength tiers, calibration
// curve, humanization policies, play presets, review and search knobs) from
// embedded defaults plus an optional override file.
package tuning

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

//go:embed defaults.yaml
var defaultFiles embed.FS

type Search struct {
	GuardGrace       time.Duration `yaml:"guard_grace"`
	CompactWindow    time.Duration `yaml:"compact_window"`
	MaxInfoEntries   int           `yaml:"max_info_entries"`
	DepthFloor       int           `yaml:"depth_floor"`
	VerifyMoveTimeMs int           `yaml:"verify_movetime_ms"`
}

type Tuning struct {
	Strength     chess.StrengthConfig     `yaml:"strength"`
	Humanization chess.HumanizationPolicy `yaml:"humanization"`
	Search       Search                   `yaml:"search"`
	Review       chess.ReviewOptions      `yaml:"review"`
	Presets      map[string]chess.Preset  `yaml:"presets"`
}

// Load reads the embedded defaults and then applies overridePath if set.
// Override values win field by field; presets are merged by name.
func Load(overridePath string) (*Tuning, error) {
	raw, err := fs.ReadFile(defaultFiles, "defaults.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded tuning: %w", err)
	}
	t := &Tuning{}
	if err := t.apply(raw); err != nil {
		return nil, fmt.Errorf("parse embedded tuning: %w", err)
	}
	if p := strings.TrimSpace(overridePath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read tuning override: %w", err)
		}
		if err := t.apply(b); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tuning) apply(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	// Decoding over a populated struct keeps fields the document omits.
	// Slices are replaced wholesale, which is what calibration needs.
	prev := t.Presets
	t.Presets = nil
	if err := dec.Decode(t); err != nil && !errors.Is(err, io.EOF) {
		t.Presets = prev
		return err
	}
	merged := make(map[string]chess.Preset, len(prev)+len(t.Presets))
	for name, p := range prev {
		merged[name] = p
	}
	for name, p := range t.Presets {
		name = strings.ToLower(strings.TrimSpace(name))
		p.Name = name
		merged[name] = p
	}
	t.Presets = merged
	return nil
}

func (t *Tuning) Validate() error {
	if err := chess.ValidateStrengthConfig(t.Strength); err != nil {
		return fmt.Errorf("strength: %w", err)
	}
	if err := chess.ValidatePolicy(t.Humanization); err != nil {
		return fmt.Errorf("humanization: %w", err)
	}
	if t.Search.DepthFloor < 0 || t.Search.VerifyMoveTimeMs < 0 || t.Search.MaxInfoEntries < 0 {
		return fmt.Errorf("search knobs must be >= 0")
	}
	for _, name := range t.PresetNames() {
		if err := chess.ValidatePreset(t.Presets[name]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tuning) PresetNames() []string {
	names := make([]string, 0, len(t.Presets))
	for name := range t.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyTo copies the heuristics into an engine config.
func (t *Tuning) ApplyTo(cfg *chess.Config) {
	cfg.Strength = t.Strength
	cfg.Humanization = t.Humanization
	cfg.Review = t.Review
	cfg.DepthFloor = t.Search.DepthFloor
	cfg.VerifyMoveTimeMs = t.Search.VerifyMoveTimeMs
	cfg.Search = chess.SearchTuning{
		GuardGrace:     t.Search.GuardGrace,
		CompactWindow:  t.Search.CompactWindow,
		MaxInfoEntries: t.Search.MaxInfoEntries,
	}
	cfg.Presets = make(map[string]chess.Preset, len(t.Presets))
	for name, p := range t.Presets {
		cfg.Presets[name] = p
	}
}
