package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/park285/cheese-engine-bridge/internal/chess/openingbook"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

const (
	defaultDepthFloor       = 14
	defaultVerifyMoveTimeMs = 150
	defaultInitialRating    = 1500
)

type SearchTuning struct {
	GuardGrace     time.Duration `yaml:"guard_grace"`
	CompactWindow  time.Duration `yaml:"compact_window"`
	MaxInfoEntries int           `yaml:"max_info_entries"`
}

type Config struct {
	Spawn       uci.Spawner
	IdleTimeout time.Duration
	Book        *openingbook.Book
	Styles      *openingbook.Styles
	Cache       AnalysisCache
	Logger      *zap.Logger

	Strength      StrengthConfig
	Humanization  HumanizationPolicy
	Presets       map[string]Preset
	InitialRating int
	DepthFloor    int
	// VerifyMoveTimeMs is the budget of the search run after a book hit to
	// score the position. Zero disables it.
	VerifyMoveTimeMs int
	Search           SearchTuning
	Review           ReviewOptions
	// Seed fixes the move-choice randomness; zero seeds from the clock.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		Strength:         DefaultStrengthConfig(),
		Humanization:     DefaultHumanizationPolicy(),
		InitialRating:    defaultInitialRating,
		DepthFloor:       defaultDepthFloor,
		VerifyMoveTimeMs: defaultVerifyMoveTimeMs,
		Search: SearchTuning{
			GuardGrace:     uci.DefaultGuardGrace,
			CompactWindow:  uci.DefaultCompactWindow,
			MaxInfoEntries: uci.DefaultMaxInfoEntries,
		},
		Review: DefaultReviewOptions(),
	}
}

type Engine struct {
	cfg    Config
	sup    *uci.Supervisor
	book   *openingbook.Book
	styles *openingbook.Styles
	cache  AnalysisCache
	logger *zap.Logger
	flight singleflight.Group

	flightMu sync.Mutex
	flights  map[string]*flightCall

	target  atomic.Int64
	profile atomic.Pointer[StrengthProfile]
	caps    atomic.Pointer[uci.Capabilities]

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Spawn == nil {
		return nil, fmt.Errorf("engine spawner required")
	}
	if err := ValidateStrengthConfig(cfg.Strength); err != nil {
		return nil, fmt.Errorf("strength config: %w", err)
	}
	if err := ValidatePolicy(cfg.Humanization); err != nil {
		return nil, fmt.Errorf("humanization policy: %w", err)
	}
	if cfg.DepthFloor <= 0 {
		cfg.DepthFloor = defaultDepthFloor
	}
	if cfg.VerifyMoveTimeMs < 0 {
		cfg.VerifyMoveTimeMs = 0
	}
	if cfg.InitialRating <= 0 {
		cfg.InitialRating = defaultInitialRating
	}
	cfg.Review = cfg.Review.withDefaults(DefaultReviewOptions())
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:    cfg,
		book:   cfg.Book,
		styles: cfg.Styles,
		cache:  cfg.Cache,
		logger: cfg.Logger,
		rand:   rand.New(rand.NewSource(seed)),

		flights: make(map[string]*flightCall),
	}
	e.target.Store(int64(cfg.InitialRating))

	sup, err := uci.NewSupervisor(uci.SupervisorConfig{
		Spawn:       cfg.Spawn,
		IdleTimeout: cfg.IdleTimeout,
		OnStart:     e.prepareSession,
		OnRestart:   func(int) { engineRestartsTotal.Inc() },
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	e.sup = sup
	return e, nil
}

// prepareSession re-applies the target strength on every freshly spawned
// process.
func (e *Engine) prepareSession(ctx context.Context, s *uci.Session) error {
	caps := s.Capabilities()
	e.caps.Store(&caps)
	return s.Run(ctx, func(ctx context.Context, c *uci.Conn) error {
		_, err := e.applyRating(ctx, c, int(e.target.Load()))
		return err
	})
}

func (e *Engine) applyRating(ctx context.Context, c *uci.Conn, rating int) (StrengthProfile, error) {
	lo, hi := EloRange(e.cfg.Strength, c.Capabilities())
	p := ComputeProfile(e.cfg.Strength, rating, lo, hi)
	if err := applyProfile(ctx, c, p); err != nil {
		return StrengthProfile{}, fmt.Errorf("apply strength %d: %w", p.Rating, err)
	}
	e.profile.Store(&p)
	return p, nil
}

func (e *Engine) withSession(ctx context.Context, fn func(ctx context.Context, c *uci.Conn) error) error {
	s, err := e.sup.Acquire(ctx)
	if err != nil {
		return err
	}
	err = s.Run(ctx, fn)
	e.sup.Release(s, err)
	return err
}

// ApplyStrength clamps rating into the supported range, derives the profile
// and pushes it to the engine as one queued unit.
func (e *Engine) ApplyStrength(ctx context.Context, rating int) (StrengthProfile, error) {
	var applied StrengthProfile
	err := e.withSession(ctx, func(ctx context.Context, c *uci.Conn) error {
		p, err := e.applyRating(ctx, c, rating)
		if err != nil {
			return err
		}
		e.target.Store(int64(p.Rating))
		applied = p
		return nil
	})
	if err != nil {
		return StrengthProfile{}, err
	}
	e.logger.Info("strength_applied",
		zap.Int("requested", rating),
		zap.Int("rating", applied.Rating),
		zap.String("tier", string(applied.Tier)),
		zap.Int("skill", applied.Skill),
		zap.Bool("limit", applied.LimitStrength))
	return applied, nil
}

func (e *Engine) Strength() (StrengthProfile, bool) {
	p := e.profile.Load()
	if p == nil {
		return StrengthProfile{}, false
	}
	return *p, true
}

// WithFullStrength runs fn in one queued unit with every strength limit
// lifted. The previous profile is restored afterwards even if fn fails.
func (e *Engine) WithFullStrength(ctx context.Context, fn func(ctx context.Context, c *uci.Conn) error) error {
	return e.withSession(ctx, func(ctx context.Context, c *uci.Conn) (err error) {
		prev := e.profile.Load()
		defer func() {
			rctx := context.WithoutCancel(ctx)
			var restoreErr error
			if prev != nil {
				restoreErr = applyProfile(rctx, c, *prev)
			} else {
				_, restoreErr = e.applyRating(rctx, c, int(e.target.Load()))
			}
			if restoreErr != nil {
				e.logger.Warn("strength_restore_failed", zap.Error(restoreErr))
				if err == nil {
					err = restoreErr
				}
			}
		}()
		if err := applyProfile(ctx, c, fullStrengthProfile(e.cfg.Strength)); err != nil {
			return fmt.Errorf("lift strength limit: %w", err)
		}
		return fn(ctx, c)
	})
}

type Capabilities struct {
	EngineName      string             `json:"engine_name"`
	EngineAuthor    string             `json:"engine_author"`
	Options         []uci.Option       `json:"options"`
	EloMin          int                `json:"elo_min"`
	EloMax          int                `json:"elo_max"`
	MaxMultiPV      int                `json:"max_multipv"`
	Book            bool               `json:"book"`
	BookSources     []string           `json:"book_sources,omitempty"`
	BookMaxFullMove int                `json:"book_max_fullmove,omitempty"`
	StyleGroups     int                `json:"style_groups"`
	Presets         []string           `json:"presets"`
	State           string             `json:"state"`
	Strength        *StrengthProfile   `json:"strength,omitempty"`
	Calibration     []CalibrationPoint `json:"calibration"`
}

func (e *Engine) Capabilities(ctx context.Context) (Capabilities, error) {
	if e.caps.Load() == nil {
		s, err := e.sup.Acquire(ctx)
		if err != nil {
			return Capabilities{}, err
		}
		e.sup.Release(s, nil)
	}
	caps := e.caps.Load()
	if caps == nil {
		return Capabilities{}, uci.ErrNotReady
	}

	out := Capabilities{
		EngineName:   caps.Name,
		EngineAuthor: caps.Author,
		Options:      append([]uci.Option(nil), caps.Options...),
		MaxMultiPV:   1,
		Book:         e.book.Available(),
		BookSources:  e.book.Sources(),
		StyleGroups:  len(e.styles.Groups()),
		Presets:      e.presetNames(),
		State:        uci.StateTerminated.String(),
		Calibration:  append([]CalibrationPoint(nil), e.cfg.Strength.Calibration...),
	}
	out.EloMin, out.EloMax = EloRange(e.cfg.Strength, *caps)
	if _, hi, ok := caps.Range("MultiPV"); ok {
		out.MaxMultiPV = hi
	}
	if out.Book {
		out.BookMaxFullMove = e.book.MaxFullMove()
	}
	if s := e.sup.Current(); s != nil {
		out.State = s.State().String()
	}
	if p, ok := e.Strength(); ok {
		out.Strength = &p
	}
	return out, nil
}

type OpeningInfo struct {
	FEN        string                   `json:"fen"`
	Key        string                   `json:"key"`
	FullMove   int                      `json:"fullmove"`
	Found      bool                     `json:"found"`
	ECO        string                   `json:"eco,omitempty"`
	Title      string                   `json:"title,omitempty"`
	Styles     []openingbook.StyleGroup `json:"styles,omitempty"`
	InBook     bool                     `json:"in_book"`
	Candidates []openingbook.Move       `json:"candidates,omitempty"`
}

// IdentifyOpening names the opening at fen and lists the book moves for it.
// It never touches the engine process.
func (e *Engine) IdentifyOpening(fen string) (OpeningInfo, error) {
	if err := ValidateFEN(fen); err != nil {
		return OpeningInfo{}, err
	}
	info := OpeningInfo{
		FEN:      fen,
		Key:      openingbook.NormalizeKey(fen),
		FullMove: openingbook.FullMoveNumber(fen),
	}
	if o, ok := openingbook.IdentifyECO(fen); ok {
		info.Found = true
		info.ECO = o.ECO
		info.Title = o.Title
		info.Styles = e.styles.ForECO(o.ECO)
	}
	info.Candidates = e.book.Candidates(fen)
	info.InBook = len(info.Candidates) > 0
	return info, nil
}

func (e *Engine) Quit(ctx context.Context) error {
	return e.sup.Terminate(ctx)
}

func (e *Engine) Close(ctx context.Context) error {
	return e.sup.Close(ctx)
}

func (e *Engine) presetNames() []string {
	if e.cfg.Presets == nil {
		return PresetNames()
	}
	names := make([]string, 0, len(e.cfg.Presets))
	for name := range e.cfg.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) preset(name string) (Preset, error) {
	if e.cfg.Presets == nil {
		return GetPreset(name)
	}
	return lookupPreset(e.cfg.Presets, name)
}

// random derives an independent generator per request so concurrent callers
// never share one.
func (e *Engine) random(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	e.randMu.Lock()
	s := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(s))
}

func isEngineFailure(err error) bool {
	return errors.Is(err, uci.ErrEngineExited) || errors.Is(err, uci.ErrHandshake) || errors.Is(err, uci.ErrSpawn)
}
