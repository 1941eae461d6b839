package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/park285/cheese-engine-bridge/internal/chess/openingbook"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

type AnalyzeRequest struct {
	FEN        string `json:"fen"`
	MoveTimeMs int    `json:"movetime_ms,omitempty"`
	MultiPV    int    `json:"multipv,omitempty"`
	UseBook    bool   `json:"use_book,omitempty"`
	// ForceDepthFloor searches to a fixed depth instead of by time.
	ForceDepthFloor bool                `json:"force_depth_floor,omitempty"`
	HumanMode       bool                `json:"human_mode,omitempty"`
	Policy          *HumanizationPolicy `json:"policy,omitempty"`
	Preset          string              `json:"preset,omitempty"`
	Seed            *int64              `json:"seed,omitempty"`
}

type AnalyzeResult struct {
	ID         string `json:"id"`
	FEN        string `json:"fen"`
	Move       string `json:"move"`
	SAN        string `json:"san,omitempty"`
	Ponder     string `json:"ponder,omitempty"`
	EngineMove string `json:"engine_move,omitempty"`

	Score *uci.Score `json:"score,omitempty"`
	Depth int        `json:"depth,omitempty"`
	Infos []uci.Info `json:"infos,omitempty"`

	Book           bool               `json:"book"`
	BookCandidates []openingbook.Move `json:"book_candidates,omitempty"`

	Humanized  bool        `json:"humanized"`
	HumanStage HumanStage  `json:"human_stage,omitempty"`
	LossCP     int         `json:"loss_cp,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`

	Cached     bool          `json:"cached"`
	ForcedStop bool          `json:"forced_stop,omitempty"`
	Rating     int           `json:"rating,omitempty"`
	MoveTimeMs int           `json:"movetime_ms,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// analyzePlan is an AnalyzeRequest with every default resolved.
type analyzePlan struct {
	fen        string
	moveTimeMs int
	multiPV    int
	depth      int
	useBook    bool
	human      bool
	policy     HumanizationPolicy
	rating     int
}

func (e *Engine) plan(req AnalyzeRequest) (analyzePlan, error) {
	p := analyzePlan{
		fen:        req.FEN,
		moveTimeMs: req.MoveTimeMs,
		multiPV:    max(req.MultiPV, 1),
		useBook:    req.UseBook,
		human:      req.HumanMode,
		policy:     e.cfg.Humanization,
	}
	if req.ForceDepthFloor {
		p.depth = e.cfg.DepthFloor
	}
	if req.Preset != "" {
		preset, err := e.preset(req.Preset)
		if err != nil {
			return analyzePlan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		p.human = true
		p.policy = preset.Policy
		p.rating = preset.Rating
		p.useBook = p.useBook || preset.UseBook
		if p.moveTimeMs <= 0 {
			p.moveTimeMs = preset.MoveTimeMs
		}
	}
	if req.Policy != nil {
		if err := ValidatePolicy(*req.Policy); err != nil {
			return analyzePlan{}, fmt.Errorf("%w: humanization policy: %w", ErrInvalidRequest, err)
		}
		p.policy = *req.Policy
	}
	if p.human {
		p.multiPV = max(p.multiPV, p.policy.MultiPV)
	}
	if p.moveTimeMs <= 0 {
		p.moveTimeMs = e.defaultMoveTime(p.rating)
	}
	p.moveTimeMs = max(p.moveTimeMs, e.cfg.Strength.MinMoveTimeMs)
	return p, nil
}

// defaultMoveTime follows the calibration curve for rating, or for the
// current strength when rating is zero.
func (e *Engine) defaultMoveTime(rating int) int {
	if rating <= 0 {
		if cur, ok := e.Strength(); ok {
			return cur.MoveTimeMs
		}
		rating = int(e.target.Load())
	}
	return MoveTimeForRating(e.cfg.Strength.Calibration, rating, e.cfg.Strength.MinMoveTimeMs)
}

func (e *Engine) currentRating() int {
	if cur, ok := e.Strength(); ok {
		return cur.Rating
	}
	return int(e.target.Load())
}

// AnalyzeFen answers one position: from the opening book when allowed and
// the book has the position, otherwise from an engine search. Play mode then
// lets the humanizer replace the engine's first choice.
func (e *Engine) AnalyzeFen(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	started := time.Now()
	if err := ValidateFEN(req.FEN); err != nil {
		analysesTotal.WithLabelValues("engine", "invalid").Inc()
		return AnalyzeResult{}, err
	}
	plan, err := e.plan(req)
	if err != nil {
		analysesTotal.WithLabelValues("engine", "invalid").Inc()
		return AnalyzeResult{}, err
	}
	r := e.random(req.Seed)

	if plan.useBook {
		if res, ok := e.answerFromBook(ctx, plan, r); ok {
			res.ID = uuid.NewString()
			res.Duration = time.Since(started)
			analysesTotal.WithLabelValues("book", "ok").Inc()
			e.logger.Info("analyze_book_hit",
				zap.String("id", res.ID),
				zap.String("fen", plan.fen),
				zap.String("move", res.Move),
				zap.Int("candidates", len(res.BookCandidates)))
			return res, nil
		}
	}

	var res AnalyzeResult
	if e.cache != nil && !plan.human {
		res, err = e.searchCached(ctx, plan)
	} else {
		res, err = e.search(ctx, plan)
	}
	if err != nil {
		analysesTotal.WithLabelValues("engine", outcomeLabel(err)).Inc()
		e.logger.Warn("analyze_failed",
			zap.String("fen", plan.fen),
			zap.Int("movetime_ms", plan.moveTimeMs),
			zap.Error(err))
		return AnalyzeResult{}, err
	}

	if plan.human {
		e.humanize(&res, plan.policy, r)
	}
	res.ID = uuid.NewString()
	res.SAN = MoveSAN(plan.fen, res.Move)
	res.Duration = time.Since(started)

	source := "engine"
	if res.Cached {
		source = "cache"
	}
	analysesTotal.WithLabelValues(source, "ok").Inc()
	e.logger.Info("analyze_done",
		zap.String("id", res.ID),
		zap.String("source", source),
		zap.String("move", res.Move),
		zap.String("engine_move", res.EngineMove),
		zap.Bool("humanized", res.Humanized),
		zap.Int("depth", res.Depth),
		zap.Bool("forced_stop", res.ForcedStop),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (e *Engine) answerFromBook(ctx context.Context, plan analyzePlan, r *rand.Rand) (AnalyzeResult, bool) {
	hit, ok := e.book.Probe(plan.fen, r)
	if !ok {
		return AnalyzeResult{}, false
	}
	res := AnalyzeResult{
		FEN:            plan.fen,
		Move:           hit.Move,
		EngineMove:     hit.Move,
		SAN:            MoveSAN(plan.fen, hit.Move),
		Book:           true,
		BookCandidates: hit.Candidates,
		Rating:         e.currentRating(),
	}
	if e.cfg.VerifyMoveTimeMs <= 0 {
		return res, true
	}

	var sr uci.SearchResult
	err := e.withSession(ctx, func(ctx context.Context, c *uci.Conn) error {
		var err error
		sr, err = c.Search(ctx, e.searchRequest(plan.fen, 1, 0, e.cfg.VerifyMoveTimeMs))
		return err
	})
	if err != nil {
		// The book move stands without a score.
		e.logger.Warn("book_verify_failed", zap.String("fen", plan.fen), zap.Error(err))
		return res, true
	}
	searchDuration.WithLabelValues("verify").Observe(sr.Elapsed.Seconds())
	if info, ok := sr.Principal(); ok {
		res.Score = info.Score
		res.Depth = info.Depth
	}
	res.MoveTimeMs = e.cfg.VerifyMoveTimeMs
	return res, true
}

func (e *Engine) searchCached(ctx context.Context, plan analyzePlan) (AnalyzeResult, error) {
	key := analysisCacheKey(plan.fen, plan.moveTimeMs, plan.multiPV, plan.depth, e.currentRating())
	if res, ok, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn("analysis_cache_get_failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		res.Cached = true
		return res, nil
	}

	call, ch := e.joinFlight(ctx, key, plan)
	defer e.leaveFlight(key, call)
	select {
	case r := <-ch:
		if r.Err != nil {
			return AnalyzeResult{}, r.Err
		}
		res := r.Val.(AnalyzeResult)
		if r.Shared {
			res.Infos = append([]uci.Info(nil), res.Infos...)
		}
		return res, nil
	case <-ctx.Done():
		return AnalyzeResult{}, ctx.Err()
	}
}

// flightCall is the context of one collapsed search. It is canceled once
// every caller waiting on it has gone.
type flightCall struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (e *Engine) joinFlight(ctx context.Context, key string, plan analyzePlan) (*flightCall, <-chan singleflight.Result) {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()

	call := e.flights[key]
	if call == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &flightCall{ctx: fctx, cancel: cancel}
		e.flights[key] = call
	}
	call.waiters++

	ch := e.flight.DoChan(key, func() (any, error) {
		defer e.endFlight(key, call)
		res, err := e.search(call.ctx, plan)
		if err != nil {
			return nil, err
		}
		if err := e.cache.Set(context.WithoutCancel(call.ctx), key, res); err != nil {
			e.logger.Warn("analysis_cache_set_failed", zap.String("key", key), zap.Error(err))
		}
		return res, nil
	})
	return call, ch
}

func (e *Engine) leaveFlight(key string, call *flightCall) {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()

	call.waiters--
	if call.waiters > 0 {
		return
	}
	call.cancel()
	if e.flights[key] == call {
		delete(e.flights, key)
		e.flight.Forget(key)
	}
}

func (e *Engine) endFlight(key string, call *flightCall) {
	e.flightMu.Lock()
	if e.flights[key] == call {
		delete(e.flights, key)
	}
	e.flightMu.Unlock()
	call.cancel()
}

func (e *Engine) search(ctx context.Context, plan analyzePlan) (AnalyzeResult, error) {
	var (
		sr     uci.SearchResult
		rating int
	)
	err := e.withSession(ctx, func(ctx context.Context, c *uci.Conn) error {
		if plan.rating > 0 {
			lo, hi := EloRange(e.cfg.Strength, c.Capabilities())
			want := clampInt(plan.rating, lo, hi)
			if cur := e.profile.Load(); cur == nil || cur.Rating != want {
				if _, err := e.applyRating(ctx, c, want); err != nil {
					return err
				}
				e.target.Store(int64(want))
			}
		}
		if cur := e.profile.Load(); cur != nil {
			rating = cur.Rating
		}
		var err error
		sr, err = c.Search(ctx, e.searchRequest(plan.fen, plan.multiPV, plan.depth, plan.moveTimeMs))
		return err
	})
	if err != nil {
		if isEngineFailure(err) {
			e.logger.Warn("engine_unavailable", zap.Error(err))
		}
		return AnalyzeResult{}, err
	}

	kind := "movetime"
	if plan.depth > 0 {
		kind = "depth"
	}
	searchDuration.WithLabelValues(kind).Observe(sr.Elapsed.Seconds())
	if sr.ForcedStop {
		forcedStopsTotal.Inc()
	}

	res := AnalyzeResult{
		FEN:        plan.fen,
		Move:       sr.BestMove,
		Ponder:     sr.Ponder,
		EngineMove: sr.BestMove,
		Infos:      sr.Infos,
		ForcedStop: sr.ForcedStop,
		Rating:     rating,
		MoveTimeMs: plan.moveTimeMs,
	}
	if plan.depth > 0 {
		res.MoveTimeMs = 0
	}
	if info, ok := sr.Principal(); ok {
		res.Score = info.Score
		res.Depth = info.Depth
	}
	return res, nil
}

func (e *Engine) searchRequest(fen string, multiPV, depth, moveTimeMs int) uci.SearchRequest {
	return uci.SearchRequest{
		FEN:            fen,
		MultiPV:        multiPV,
		Depth:          depth,
		MoveTimeMs:     moveTimeMs,
		GuardGrace:     e.cfg.Search.GuardGrace,
		CompactWindow:  e.cfg.Search.CompactWindow,
		MaxInfoEntries: e.cfg.Search.MaxInfoEntries,
	}
}

func (e *Engine) humanize(res *AnalyzeResult, policy HumanizationPolicy, r *rand.Rand) {
	candidates := CollectCandidates(res.Infos)
	res.Candidates = candidates
	choice, ok := Humanize(policy, candidates, r)
	if !ok || choice.Move == res.EngineMove {
		return
	}
	res.Move = choice.Move
	res.Humanized = true
	res.HumanStage = choice.Stage
	res.LossCP = choice.LossCP
	res.Ponder = ""
	if len(choice.PV) > 1 {
		res.Ponder = choice.PV[1]
	}
	humanizedTotal.WithLabelValues(string(choice.Stage)).Inc()
}

// IsInvalidRequest reports whether err came from bad caller input rather
// than from the engine.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidFEN) || errors.Is(err, ErrInvalidRequest)
}

var ErrInvalidRequest = errors.New("invalid request")
