package review

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

type fakeReviewer struct {
	calls int
	err   error
}

func (f *fakeReviewer) ReviewPositionsFast(ctx context.Context, fens []string, opts chess.ReviewOptions) (chess.ReviewReport, error) {
	f.calls++
	if f.err != nil {
		return chess.ReviewReport{}, f.err
	}
	positions := make([]chess.ReviewPosition, len(fens))
	for i, fen := range fens {
		positions[i] = chess.ReviewPosition{Index: i, FEN: fen, BestMove: "e2e4"}
	}
	return chess.ReviewReport{ID: uuid.NewString(), Positions: positions, Deepened: []int{}}, nil
}

type failingRepo struct{}

func (failingRepo) SaveReport(context.Context, chess.ReviewReport) error {
	return errors.New("disk full")
}

func (failingRepo) GetReport(context.Context, string) (chess.ReviewReport, error) {
	return chess.ReviewReport{}, ErrNotFound
}

func TestServiceStoresReport(t *testing.T) {
	svc := NewService(&fakeReviewer{}, nil, nil)
	ctx := context.Background()

	report, err := svc.Review(ctx, []string{"startpos", "startpos"}, chess.ReviewOptions{})
	require.NoError(t, err)

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Len(t, got.Positions, 2)

	_, err = svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceReviewError(t *testing.T) {
	boom := errors.New("engine exited")
	svc := NewService(&fakeReviewer{err: boom}, nil, nil)
	_, err := svc.Review(context.Background(), []string{"startpos"}, chess.ReviewOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestServiceSaveFailureStillReturnsReport(t *testing.T) {
	svc := NewService(&fakeReviewer{}, failingRepo{}, nil)
	report, err := svc.Review(context.Background(), []string{"startpos"}, chess.ReviewOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
}

func TestMemoryRepositoryEvictsOldest(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		require.NoError(t, repo.SaveReport(ctx, chess.ReviewReport{ID: id}))
	}

	_, err := repo.GetReport(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	for _, id := range ids[1:] {
		_, err := repo.GetReport(ctx, id)
		assert.NoError(t, err)
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, repo.SaveReport(ctx, chess.ReviewReport{ID: id, Deepened: []int{1}}))

	got, err := repo.GetReport(ctx, id)
	require.NoError(t, err)
	got.Deepened[0] = 99

	again, err := repo.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, again.Deepened)
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, repo, err := OpenPostgres(url)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	report := chess.ReviewReport{
		ID:        uuid.NewString(),
		Positions: []chess.ReviewPosition{{Index: 0, FEN: "startpos", BestMove: "e2e4", Magnitude: 20}},
		Deepened:  []int{},
	}
	require.NoError(t, repo.SaveReport(ctx, report))

	got, err := repo.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Positions, got.Positions)

	_, err = repo.GetReport(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
