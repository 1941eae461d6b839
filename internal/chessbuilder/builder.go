// Package chessbuilder wires configuration, tuning, books, cache and the
// review store into a ready engine.
package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-engine-bridge/internal/chess"
	"github.com/park285/cheese-engine-bridge/internal/chess/openingbook"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
	"github.com/park285/cheese-engine-bridge/internal/config"
	"github.com/park285/cheese-engine-bridge/internal/service/cache"
	"github.com/park285/cheese-engine-bridge/internal/service/review"
	"github.com/park285/cheese-engine-bridge/internal/tuning"
)

type Deps struct {
	Engine  *chess.Engine
	Reviews *review.Service
	Cache   *cache.Redis
	Tuning  *tuning.Tuning

	db *sql.DB
}

type Option func(*options)

type options struct {
	spawn uci.Spawner
}

// WithSpawner replaces the Stockfish subprocess, e.g. with a scripted engine.
func WithSpawner(s uci.Spawner) Option {
	return func(o *options) { o.spawn = s }
}

func New(cfg *config.AppConfig, logger *zap.Logger, opts ...Option) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.spawn == nil {
		if strings.TrimSpace(cfg.StockfishPath) == "" {
			return nil, fmt.Errorf("STOCKFISH_PATH is required for chess engine")
		}
		o.spawn = uci.ProcessSpawner(cfg.StockfishPath, uci.Config{Logger: logger.Named("uci")})
	}

	tun, err := tuning.Load(cfg.TuningFile)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	book := loadBook(cfg, logger)
	var styles *openingbook.Styles
	if p := strings.TrimSpace(cfg.StylesPath); p != "" {
		if styles, err = openingbook.LoadStylesFile(p); err != nil {
			return nil, fmt.Errorf("load opening styles: %w", err)
		}
	}

	deps := &Deps{Tuning: tun}
	ecfg := chess.DefaultConfig()
	tun.ApplyTo(&ecfg)
	ecfg.Spawn = o.spawn
	ecfg.IdleTimeout = cfg.IdleTimeout
	ecfg.Book = book
	ecfg.Styles = styles
	ecfg.Logger = logger.Named("engine")
	ecfg.InitialRating = cfg.DefaultRating
	if cfg.VerifyMoveTimeMs >= 0 {
		ecfg.VerifyMoveTimeMs = cfg.VerifyMoveTimeMs
	}

	// Cache (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		c, err := cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		deps.Cache = c
		ecfg.Cache = c
	} else {
		logger.Info("analysis_cache_disabled")
	}

	engine, err := chess.NewEngine(ecfg)
	if err != nil {
		deps.closeStores()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	deps.Engine = engine

	// Review store: Postgres when configured, memory otherwise
	var repo review.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, r, err := review.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			_ = engine.Close(context.Background())
			deps.closeStores()
			return nil, fmt.Errorf("init review store: %w", err)
		}
		deps.db = db
		repo = r
	}
	deps.Reviews = review.NewService(engine, repo, logger.Named("review"))

	logger.Info("bridge_wired",
		zap.Bool("book", book.Available()),
		zap.Strings("book_sources", book.Sources()),
		zap.Bool("styles", styles != nil),
		zap.Bool("cache", deps.Cache != nil),
		zap.Bool("postgres", deps.db != nil),
		zap.Int("initial_rating", ecfg.InitialRating),
		zap.Strings("presets", tun.PresetNames()),
	)
	return deps, nil
}

// loadBook skips sources that fail to load; without any source the engine
// runs with no book.
func loadBook(cfg *config.AppConfig, logger *zap.Logger) *openingbook.Book {
	var sources []openingbook.Source
	if p := strings.TrimSpace(cfg.BookPath); p != "" {
		t, err := openingbook.LoadTableFile(p)
		if err != nil {
			logger.Warn("opening_book_skipped", zap.String("path", p), zap.Error(err))
		} else {
			sources = append(sources, t)
		}
	}
	if p := strings.TrimSpace(cfg.PolyglotPath); p != "" {
		pg, err := openingbook.LoadPolyglotFile(p)
		if err != nil {
			logger.Warn("polyglot_book_skipped", zap.String("path", p), zap.Error(err))
		} else {
			sources = append(sources, pg)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	return openingbook.New(openingbook.Config{
		MaxFullMove: cfg.BookMaxFullMove,
		MinWeight:   cfg.BookMinWeight,
		Sample:      cfg.BookSample,
		Logger:      logger.Named("book"),
	}, sources...)
}

// Close stops the engine process and releases the stores.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close(ctx))
	}
	errs = append(errs, d.closeStores())
	return errors.Join(errs...)
}

func (d *Deps) closeStores() error {
	var errs []error
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}
