package chess

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

type ReviewOptions struct {
	FastMoveTimeMs   int `yaml:"fast_movetime_ms" json:"fast_movetime_ms,omitempty"`
	DeepMoveTimeMs   int `yaml:"deep_movetime_ms" json:"deep_movetime_ms,omitempty"`
	TopK             int `yaml:"top_k" json:"top_k,omitempty"`
	SwingThresholdCP int `yaml:"swing_threshold_cp" json:"swing_threshold_cp,omitempty"`
	MateMagnitude    int `yaml:"mate_magnitude" json:"mate_magnitude,omitempty"`
	MultiPV          int `yaml:"multipv" json:"multipv,omitempty"`
	// KeepStrengthLimit reviews at the current strength instead of full
	// strength.
	KeepStrengthLimit bool `yaml:"keep_strength_limit" json:"keep_strength_limit,omitempty"`
}

func DefaultReviewOptions() ReviewOptions {
	return ReviewOptions{
		FastMoveTimeMs:   80,
		DeepMoveTimeMs:   600,
		TopK:             6,
		SwingThresholdCP: 150,
		MateMagnitude:    10000,
		MultiPV:          1,
	}
}

func (o ReviewOptions) withDefaults(def ReviewOptions) ReviewOptions {
	if o.FastMoveTimeMs <= 0 {
		o.FastMoveTimeMs = def.FastMoveTimeMs
	}
	if o.DeepMoveTimeMs <= 0 {
		o.DeepMoveTimeMs = def.DeepMoveTimeMs
	}
	if o.TopK <= 0 {
		o.TopK = def.TopK
	}
	if o.SwingThresholdCP <= 0 {
		o.SwingThresholdCP = def.SwingThresholdCP
	}
	if o.MateMagnitude <= 0 {
		o.MateMagnitude = def.MateMagnitude
	}
	if o.MultiPV <= 0 {
		o.MultiPV = max(def.MultiPV, 1)
	}
	return o
}

type ReviewPosition struct {
	Index     int        `json:"index"`
	FEN       string     `json:"fen"`
	BestMove  string     `json:"best_move,omitempty"`
	SAN       string     `json:"san,omitempty"`
	Ponder    string     `json:"ponder,omitempty"`
	Score     *uci.Score `json:"score,omitempty"`
	Depth     int        `json:"depth,omitempty"`
	PV        []string   `json:"pv,omitempty"`
	Magnitude int        `json:"magnitude"`
	Deep      bool       `json:"deep"`
	Error     string     `json:"error,omitempty"`
}

type ReviewReport struct {
	ID        string           `json:"id"`
	Positions []ReviewPosition `json:"positions"`
	Deepened  []int            `json:"deepened"`
	Duration  time.Duration    `json:"duration"`
}

// ReviewPositionsFast searches every position briefly, then re-searches the
// sharpest few more deeply. Deep results replace the fast ones at their
// index. The whole review is one queued unit.
func (e *Engine) ReviewPositionsFast(ctx context.Context, fens []string, opts ReviewOptions) (ReviewReport, error) {
	started := time.Now()
	opts = opts.withDefaults(e.cfg.Review)
	report := ReviewReport{
		ID:        uuid.NewString(),
		Positions: make([]ReviewPosition, len(fens)),
		Deepened:  []int{},
	}
	for i, fen := range fens {
		report.Positions[i] = ReviewPosition{Index: i, FEN: fen}
	}
	if len(fens) == 0 {
		return report, nil
	}

	run := func(ctx context.Context, c *uci.Conn) error {
		for i := range report.Positions {
			if err := e.reviewOne(ctx, c, &report.Positions[i], opts.FastMoveTimeMs, opts); err != nil {
				return err
			}
		}
		for _, idx := range swingIndexes(report.Positions, opts) {
			deep := report.Positions[idx]
			if err := e.reviewOne(ctx, c, &deep, opts.DeepMoveTimeMs, opts); err != nil {
				return err
			}
			if deep.Error != "" {
				e.logger.Warn("review_deep_failed", zap.Int("index", idx), zap.String("error", deep.Error))
				continue
			}
			deep.Deep = true
			report.Positions[idx] = deep
			report.Deepened = append(report.Deepened, idx)
			reviewDeepenedTotal.Inc()
		}
		return nil
	}

	var err error
	if opts.KeepStrengthLimit {
		err = e.withSession(ctx, run)
	} else {
		err = e.WithFullStrength(ctx, run)
	}
	report.Duration = time.Since(started)
	if err != nil {
		e.logger.Warn("review_failed", zap.String("id", report.ID), zap.Int("positions", len(fens)), zap.Error(err))
		return ReviewReport{}, err
	}
	e.logger.Info("review_done",
		zap.String("id", report.ID),
		zap.Int("positions", len(fens)),
		zap.Ints("deepened", report.Deepened),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// reviewOne fills pos from one search. Per-position failures are recorded on
// pos; only failures that end the conversation are returned.
func (e *Engine) reviewOne(ctx context.Context, c *uci.Conn, pos *ReviewPosition, moveTimeMs int, opts ReviewOptions) error {
	if err := ValidateFEN(pos.FEN); err != nil {
		pos.Error = err.Error()
		return nil
	}
	sr, err := c.Search(ctx, e.searchRequest(pos.FEN, opts.MultiPV, 0, moveTimeMs))
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, uci.ErrEngineExited) {
			return err
		}
		pos.Error = err.Error()
		return nil
	}
	searchDuration.WithLabelValues("review").Observe(sr.Elapsed.Seconds())
	if sr.ForcedStop {
		forcedStopsTotal.Inc()
	}
	pos.Error = ""
	pos.BestMove = sr.BestMove
	pos.Ponder = sr.Ponder
	pos.SAN = MoveSAN(pos.FEN, sr.BestMove)
	pos.Score = nil
	pos.Depth = 0
	pos.PV = nil
	pos.Magnitude = 0
	if info, ok := sr.Principal(); ok {
		pos.Score = info.Score
		pos.Depth = info.Depth
		pos.PV = info.PV
		pos.Magnitude = scoreMagnitude(info.Score, opts.MateMagnitude)
	}
	return nil
}

func scoreMagnitude(s *uci.Score, mate int) int {
	if s == nil {
		return 0
	}
	if s.IsMate() {
		return mate
	}
	if s.Value < 0 {
		return -s.Value
	}
	return s.Value
}

// swingIndexes ranks positions by magnitude and returns up to TopK indexes
// above the swing threshold, sharpest first.
func swingIndexes(positions []ReviewPosition, opts ReviewOptions) []int {
	var idx []int
	for i, p := range positions {
		if p.Error == "" && p.Magnitude > opts.SwingThresholdCP {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return positions[idx[a]].Magnitude > positions[idx[b]].Magnitude
	})
	if len(idx) > opts.TopK {
		idx = idx[:opts.TopK]
	}
	return idx
}
