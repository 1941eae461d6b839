// Package review runs whole-game reviews and keeps their reports.
package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

var ErrNotFound = errors.New("review report not found")

type Repository interface {
	SaveReport(ctx context.Context, report chess.ReviewReport) error
	GetReport(ctx context.Context, id string) (chess.ReviewReport, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS review_reports (
	id          UUID PRIMARY KEY,
	positions   JSONB NOT NULL,
	deepened    JSONB NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type postgresRepository struct {
	db *sql.DB
}

// OpenPostgres connects, pings and makes sure the review_reports table
// exists.
func OpenPostgres(databaseURL string) (*sql.DB, Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create review_reports: %w", err)
	}
	return db, NewPostgresRepository(db), nil
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) SaveReport(ctx context.Context, report chess.ReviewReport) error {
	id, err := uuid.Parse(report.ID)
	if err != nil {
		return fmt.Errorf("report id %q: %w", report.ID, err)
	}
	positions, err := json.Marshal(report.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	deepened, err := json.Marshal(report.Deepened)
	if err != nil {
		return fmt.Errorf("marshal deepened: %w", err)
	}

	const query = `
		INSERT INTO review_reports (id, positions, deepened, duration_ms)
		VALUES ($1, $2::jsonb, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			positions = EXCLUDED.positions,
			deepened = EXCLUDED.deepened,
			duration_ms = EXCLUDED.duration_ms`
	if _, err := r.db.ExecContext(ctx, query, id.String(), positions, deepened, report.Duration.Milliseconds()); err != nil {
		return fmt.Errorf("insert review report: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetReport(ctx context.Context, id string) (chess.ReviewReport, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return chess.ReviewReport{}, ErrNotFound
	}

	const query = `SELECT positions, deepened, duration_ms FROM review_reports WHERE id = $1`
	var (
		positions, deepened []byte
		durationMs          int64
	)
	err = r.db.QueryRowContext(ctx, query, parsed.String()).Scan(&positions, &deepened, &durationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return chess.ReviewReport{}, ErrNotFound
	}
	if err != nil {
		return chess.ReviewReport{}, fmt.Errorf("select review report: %w", err)
	}

	report := chess.ReviewReport{ID: parsed.String(), Duration: time.Duration(durationMs) * time.Millisecond}
	if err := json.Unmarshal(positions, &report.Positions); err != nil {
		return chess.ReviewReport{}, fmt.Errorf("unmarshal positions: %w", err)
	}
	if err := json.Unmarshal(deepened, &report.Deepened); err != nil {
		return chess.ReviewReport{}, fmt.Errorf("unmarshal deepened: %w", err)
	}
	return report, nil
}
