package openingbook

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	chesslib "github.com/corentings/chess/v2"
	"go.uber.org/zap"
)

const (
	DefaultMaxFullMove = 10
	DefaultMinWeight   = 1
)

type Config struct {
	// MaxFullMove disables the book past this full-move number.
	MaxFullMove int
	// MinWeight drops merged candidates below this weight.
	MinWeight int
	// Sample draws proportionally to weight instead of taking the top move.
	Sample bool
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxFullMove <= 0 {
		c.MaxFullMove = DefaultMaxFullMove
	}
	if c.MinWeight <= 0 {
		c.MinWeight = DefaultMinWeight
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

type Hit struct {
	Move       string `json:"move"`
	Weight     int    `json:"weight"`
	Candidates []Move `json:"candidates"`
}

type Book struct {
	cfg     Config
	sources []Source
}

func New(cfg Config, sources ...Source) *Book {
	b := &Book{cfg: cfg.withDefaults()}
	for _, src := range sources {
		if src != nil {
			b.sources = append(b.sources, src)
		}
	}
	return b
}

func (b *Book) Available() bool { return b != nil && len(b.sources) > 0 }

func (b *Book) Sources() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.sources))
	for _, src := range b.sources {
		names = append(names, src.Name())
	}
	return names
}

func (b *Book) MaxFullMove() int {
	if b == nil {
		return 0
	}
	return b.cfg.MaxFullMove
}

func (b *Book) Candidates(fen string) []Move {
	if !b.Available() || NormalizeKey(fen) == "" {
		return nil
	}
	game, err := gameFromFEN(fen)
	if err != nil {
		b.cfg.Logger.Warn("book_position_invalid", zap.String("fen", fen), zap.Error(err))
		return nil
	}

	weights := make(map[string]int)
	for _, src := range b.sources {
		moves, err := src.Candidates(fen)
		if err != nil {
			b.cfg.Logger.Warn("book_source_failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		for _, mv := range moves {
			weights[mv.Move] += mv.Weight
		}
	}

	merged := make([]Move, 0, len(weights))
	for move, weight := range weights {
		if weight <= 0 || weight < b.cfg.MinWeight {
			continue
		}
		if !legalMove(game, move) {
			b.cfg.Logger.Debug("book_move_illegal", zap.String("fen", fen), zap.String("move", move))
			continue
		}
		merged = append(merged, Move{Move: move, Weight: weight})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Weight == merged[j].Weight {
			return merged[i].Move < merged[j].Move
		}
		return merged[i].Weight > merged[j].Weight
	})
	return merged
}

func (b *Book) Probe(fen string, r *rand.Rand) (Hit, bool) {
	if !b.Available() {
		return Hit{}, false
	}
	if FullMoveNumber(fen) > b.cfg.MaxFullMove {
		return Hit{}, false
	}
	candidates := b.Candidates(fen)
	if len(candidates) == 0 {
		return Hit{}, false
	}

	var chosen Move
	if b.cfg.Sample {
		chosen = SelectWeighted(candidates, r)
	} else {
		chosen = candidates[0]
	}
	return Hit{Move: chosen.Move, Weight: chosen.Weight, Candidates: candidates}, true
}

// SelectWeighted draws one candidate with probability proportional to its
// weight. Candidates with non-positive weight are never drawn.
func SelectWeighted(candidates []Move, r *rand.Rand) Move {
	if len(candidates) == 0 {
		return Move{}
	}
	if r == nil {
		return candidates[0]
	}
	total := 0
	for _, cand := range candidates {
		if cand.Weight > 0 {
			total += cand.Weight
		}
	}
	if total <= 0 {
		return candidates[0]
	}
	roll := r.Intn(total)
	cumulative := 0
	for _, cand := range candidates {
		if cand.Weight <= 0 {
			continue
		}
		cumulative += cand.Weight
		if roll < cumulative {
			return cand
		}
	}
	return candidates[0]
}

func gameFromFEN(fen string) (*chesslib.Game, error) {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return chesslib.NewGame(), nil
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return chesslib.NewGame(option), nil
}

func legalMove(game *chesslib.Game, move string) bool {
	clone := game.Clone()
	return clone.PushNotationMove(move, chesslib.UCINotation{}, nil) == nil
}
