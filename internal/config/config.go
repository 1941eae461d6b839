package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type AppConfig struct {
	StockfishPath string
	ListenAddr    string

	IdleTimeout   time.Duration
	DefaultRating int

	BookPath         string
	PolyglotPath     string
	StylesPath       string
	BookMaxFullMove  int
	BookMinWeight    int
	BookSample       bool
	TuningFile       string
	VerifyMoveTimeMs int

	RedisURL    string
	DatabaseURL string
	CacheTTL    time.Duration

	RateLimitPerSec float64
	RateLimitBurst  int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":7878",
		IdleTimeout:      300 * time.Second,
		DefaultRating:    1500,
		BookMaxFullMove:  10,
		BookMinWeight:    1,
		VerifyMoveTimeMs: -1,
		CacheTTL:         time.Hour,
		RateLimitBurst:   20,
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("BRIDGE_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if n, ok := envInt("BRIDGE_IDLE_TIMEOUT_SEC"); ok && n >= 0 {
		cfg.IdleTimeout = time.Duration(n) * time.Second
	}
	if n, ok := envInt("BRIDGE_DEFAULT_RATING"); ok && n > 0 {
		cfg.DefaultRating = n
	}

	// Opening book
	cfg.BookPath = strings.TrimSpace(os.Getenv("BRIDGE_BOOK_PATH"))
	cfg.PolyglotPath = strings.TrimSpace(os.Getenv("BRIDGE_POLYGLOT_PATH"))
	cfg.StylesPath = strings.TrimSpace(os.Getenv("BRIDGE_OPENING_STYLES_PATH"))
	if n, ok := envInt("BRIDGE_BOOK_MAX_FULLMOVE"); ok && n > 0 {
		cfg.BookMaxFullMove = n
	}
	if n, ok := envInt("BRIDGE_BOOK_MIN_WEIGHT"); ok && n > 0 {
		cfg.BookMinWeight = n
	}
	if v := strings.TrimSpace(os.Getenv("BRIDGE_BOOK_SAMPLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.BookSample = b
		}
	}
	// 0 disables verification; unset keeps the tuning value
	if n, ok := envInt("BRIDGE_BOOK_VERIFY_MS"); ok && n >= 0 {
		cfg.VerifyMoveTimeMs = n
	}
	cfg.TuningFile = strings.TrimSpace(os.Getenv("BRIDGE_TUNING_FILE"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if n, ok := envInt("BRIDGE_CACHE_TTL_SEC"); ok && n > 0 {
		cfg.CacheTTL = time.Duration(n) * time.Second
	}

	if v := strings.TrimSpace(os.Getenv("BRIDGE_RATE_LIMIT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.RateLimitPerSec = f
		}
	}
	if n, ok := envInt("BRIDGE_RATE_BURST"); ok && n > 0 {
		cfg.RateLimitBurst = n
	}

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}
	return cfg, nil
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
