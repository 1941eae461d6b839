package chess

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

// HumanizationPolicy shapes how far play mode may stray from the engine's
// first choice. Losses are measured in centipawns against the best candidate.
type HumanizationPolicy struct {
	MaxGapCP       int     `yaml:"max_gap_cp" json:"max_gap_cp"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	ImperfectProb  float64 `yaml:"imperfect_prob" json:"imperfect_prob"`
	ImperfectMinCP int     `yaml:"imperfect_min_cp" json:"imperfect_min_cp"`
	ImperfectMaxCP int     `yaml:"imperfect_max_cp" json:"imperfect_max_cp"`
	BlunderProb    float64 `yaml:"blunder_prob" json:"blunder_prob"`
	BlunderMaxCP   int     `yaml:"blunder_max_cp" json:"blunder_max_cp"`
	MultiPV        int     `yaml:"multipv" json:"multipv"`
}

func DefaultHumanizationPolicy() HumanizationPolicy {
	return HumanizationPolicy{
		MaxGapCP:       40,
		Temperature:    0.35,
		ImperfectProb:  0.1,
		ImperfectMinCP: 50,
		ImperfectMaxCP: 150,
		BlunderProb:    0.02,
		BlunderMaxCP:   400,
		MultiPV:        4,
	}
}

func ValidatePolicy(p HumanizationPolicy) error {
	if p.MaxGapCP < 0 {
		return fmt.Errorf("max gap must be >= 0: %d", p.MaxGapCP)
	}
	if p.Temperature < 0 {
		return fmt.Errorf("temperature must be >= 0: %v", p.Temperature)
	}
	if p.ImperfectProb < 0 || p.ImperfectProb > 1 {
		return fmt.Errorf("imperfect probability out of range 0-1: %v", p.ImperfectProb)
	}
	if p.BlunderProb < 0 || p.BlunderProb > 1 {
		return fmt.Errorf("blunder probability out of range 0-1: %v", p.BlunderProb)
	}
	if p.ImperfectMinCP < 0 || p.ImperfectMaxCP < p.ImperfectMinCP {
		return fmt.Errorf("invalid imperfect band %d-%d", p.ImperfectMinCP, p.ImperfectMaxCP)
	}
	if p.BlunderProb > 0 && p.BlunderMaxCP <= p.ImperfectMaxCP {
		return fmt.Errorf("blunder cap %d must exceed imperfect cap %d", p.BlunderMaxCP, p.ImperfectMaxCP)
	}
	if p.MultiPV < 0 {
		return fmt.Errorf("multipv must be >= 0: %d", p.MultiPV)
	}
	return nil
}

type Candidate struct {
	Move  string   `json:"move"`
	Score int      `json:"score_cp"`
	PV    []string `json:"pv,omitempty"`
	Depth int      `json:"depth"`
}

type HumanStage string

const (
	StageTop       HumanStage = "top"
	StageSampled   HumanStage = "sampled"
	StageImperfect HumanStage = "imperfect"
	StageBlunder   HumanStage = "blunder"
)

type HumanChoice struct {
	Candidate
	Stage HumanStage `json:"stage"`
	// LossCP is how much worse the choice is than the best candidate.
	LossCP int `json:"loss_cp"`
}

// CollectCandidates builds one candidate per distinct first move from the
// deepest depth reported, keeping each move's best score, best first.
func CollectCandidates(infos []uci.Info) []Candidate {
	maxDepth := 0
	for _, info := range infos {
		if info.Score != nil && info.Move() != "" && info.Depth > maxDepth {
			maxDepth = info.Depth
		}
	}
	if maxDepth == 0 {
		return nil
	}
	byMove := make(map[string]Candidate)
	for _, info := range infos {
		if info.Depth != maxDepth || info.Score == nil || info.Move() == "" {
			continue
		}
		score := info.Score.Centipawns()
		if prev, ok := byMove[info.Move()]; ok && prev.Score >= score {
			continue
		}
		byMove[info.Move()] = Candidate{Move: info.Move(), Score: score, PV: info.PV, Depth: info.Depth}
	}
	out := make([]Candidate, 0, len(byMove))
	for _, c := range byMove {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Move < out[j].Move
		}
		return out[i].Score > out[j].Score
	})
	return out
}

// Humanize picks a move from candidates (best first). Softmax sampling within
// MaxGapCP runs first, then the imperfection and blunder stages may replace
// the pick with a worse move from their loss band.
func Humanize(p HumanizationPolicy, candidates []Candidate, r *rand.Rand) (HumanChoice, bool) {
	if len(candidates) == 0 {
		return HumanChoice{}, false
	}
	best := candidates[0]
	choice := HumanChoice{Candidate: best, Stage: StageTop}
	if r == nil {
		return choice, true
	}

	if p.Temperature > 0 && p.MaxGapCP > 0 {
		if picked, ok := softmaxPick(p, candidates, r); ok && picked.Move != best.Move {
			choice = HumanChoice{Candidate: picked, Stage: StageSampled, LossCP: best.Score - picked.Score}
		}
	}

	if p.ImperfectProb > 0 && r.Float64() < p.ImperfectProb {
		band := lossBand(candidates, best.Score, p.ImperfectMinCP, p.ImperfectMaxCP, true)
		if picked, ok := pickLeastBad(band, r); ok {
			choice = HumanChoice{Candidate: picked, Stage: StageImperfect, LossCP: best.Score - picked.Score}
		}
	}

	if p.BlunderProb > 0 && r.Float64() < p.BlunderProb {
		band := lossBand(candidates, best.Score, p.ImperfectMaxCP, p.BlunderMaxCP, false)
		if picked, ok := pickLeastBad(band, r); ok {
			choice = HumanChoice{Candidate: picked, Stage: StageBlunder, LossCP: best.Score - picked.Score}
		}
	}
	return choice, true
}

func softmaxPick(p HumanizationPolicy, candidates []Candidate, r *rand.Rand) (Candidate, bool) {
	best := candidates[0].Score
	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if best-c.Score <= p.MaxGapCP {
			pool = append(pool, c)
		}
	}
	if len(pool) < 2 {
		return Candidate{}, false
	}
	weights := make([]float64, len(pool))
	total := 0.0
	for i, c := range pool {
		// temperature is expressed in pawns
		weights[i] = math.Exp(float64(c.Score-best) / 100.0 / p.Temperature)
		total += weights[i]
	}
	roll := r.Float64() * total
	for i, w := range weights {
		roll -= w
		if roll <= 0 {
			return pool[i], true
		}
	}
	return pool[len(pool)-1], true
}

// lossBand returns candidates whose loss lies in the band, least bad first.
// The lower bound is inclusive only when closedLow is set.
func lossBand(candidates []Candidate, best, lo, hi int, closedLow bool) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		loss := best - c.Score
		if loss > hi {
			continue
		}
		if loss < lo || (!closedLow && loss == lo) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// pickLeastBad draws among the three least-bad options with linearly
// decreasing weights.
func pickLeastBad(options []Candidate, r *rand.Rand) (Candidate, bool) {
	if len(options) == 0 {
		return Candidate{}, false
	}
	n := min(len(options), 3)
	total := n * (n + 1) / 2
	roll := r.Intn(total)
	for i := 0; i < n; i++ {
		roll -= n - i
		if roll < 0 {
			return options[i], true
		}
	}
	return options[0], true
}
