package chess

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Preset is a named play-mode level: a target rating plus how human the
// move choice should look.
type Preset struct {
	Name       string             `yaml:"name" json:"name"`
	Rating     int                `yaml:"rating" json:"rating"`
	MoveTimeMs int                `yaml:"movetime_ms" json:"movetime_ms,omitempty"`
	UseBook    bool               `yaml:"use_book" json:"use_book"`
	Policy     HumanizationPolicy `yaml:"policy" json:"policy"`
}

var presetAliases = map[string]string{
	"beginner":     "level1",
	"intermediate": "level5",
	"advanced":     "level7",
	"master":       "level8",
}

var presetMu sync.RWMutex

var DefaultPresets = map[string]Preset{
	"level1": {
		Name:    "level1",
		Rating:  1320,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 120, Temperature: 0.9,
			ImperfectProb: 0.35, ImperfectMinCP: 60, ImperfectMaxCP: 200,
			BlunderProb: 0.12, BlunderMaxCP: 600, MultiPV: 5,
		},
	},
	"level2": {
		Name:    "level2",
		Rating:  1450,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 100, Temperature: 0.75,
			ImperfectProb: 0.28, ImperfectMinCP: 60, ImperfectMaxCP: 180,
			BlunderProb: 0.08, BlunderMaxCP: 500, MultiPV: 5,
		},
	},
	"level3": {
		Name:    "level3",
		Rating:  1600,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 80, Temperature: 0.6,
			ImperfectProb: 0.2, ImperfectMinCP: 50, ImperfectMaxCP: 160,
			BlunderProb: 0.05, BlunderMaxCP: 450, MultiPV: 5,
		},
	},
	"level4": {
		Name:    "level4",
		Rating:  1800,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 60, Temperature: 0.5,
			ImperfectProb: 0.15, ImperfectMinCP: 50, ImperfectMaxCP: 150,
			BlunderProb: 0.03, BlunderMaxCP: 400, MultiPV: 4,
		},
	},
	"level5": {
		Name:    "level5",
		Rating:  2000,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 40, Temperature: 0.35,
			ImperfectProb: 0.1, ImperfectMinCP: 50, ImperfectMaxCP: 150,
			BlunderProb: 0.02, BlunderMaxCP: 400, MultiPV: 4,
		},
	},
	"level6": {
		Name:    "level6",
		Rating:  2200,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 30, Temperature: 0.25,
			ImperfectProb: 0.06, ImperfectMinCP: 40, ImperfectMaxCP: 120,
			BlunderProb: 0.01, BlunderMaxCP: 300, MultiPV: 3,
		},
	},
	"level7": {
		Name:    "level7",
		Rating:  2500,
		UseBook: true,
		Policy: HumanizationPolicy{
			MaxGapCP: 15, Temperature: 0.15,
			ImperfectProb: 0.03, ImperfectMinCP: 30, ImperfectMaxCP: 90,
			MultiPV: 2,
		},
	},
	"level8": {
		Name:    "level8",
		Rating:  3190,
		UseBook: true,
		Policy:  HumanizationPolicy{MultiPV: 1},
	},
}

func GetPreset(name string) (Preset, error) {
	presetMu.RLock()
	defer presetMu.RUnlock()
	return lookupPreset(DefaultPresets, name)
}

func lookupPreset(presets map[string]Preset, name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := presetAliases[key]; ok {
		key = alias
	}
	p, ok := presets[key]
	if !ok {
		return Preset{}, fmt.Errorf("unknown chess preset: %s", name)
	}
	return p, nil
}

// SetPreset validates and registers p, replacing any preset of the same name.
func SetPreset(p Preset) error {
	if err := ValidatePreset(p); err != nil {
		return err
	}
	presetMu.Lock()
	defer presetMu.Unlock()
	DefaultPresets[strings.ToLower(p.Name)] = p
	return nil
}

func PresetNames() []string {
	presetMu.RLock()
	defer presetMu.RUnlock()
	names := make([]string, 0, len(DefaultPresets))
	for name := range DefaultPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ValidatePreset(p Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name required")
	}
	if p.Rating <= 0 {
		return fmt.Errorf("preset %s: rating must be > 0: %d", p.Name, p.Rating)
	}
	if p.MoveTimeMs < 0 {
		return fmt.Errorf("preset %s: movetime must be >= 0: %d", p.Name, p.MoveTimeMs)
	}
	if err := ValidatePolicy(p.Policy); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}
