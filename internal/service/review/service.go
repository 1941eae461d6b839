package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

// Reviewer is the part of chess.Engine the service needs.
type Reviewer interface {
	ReviewPositionsFast(ctx context.Context, fens []string, opts chess.ReviewOptions) (chess.ReviewReport, error)
}

type Service struct {
	reviewer Reviewer
	repo     Repository
	logger   *zap.Logger
}

func NewService(reviewer Reviewer, repo Repository, logger *zap.Logger) *Service {
	if repo == nil {
		repo = NewMemoryRepository(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reviewer: reviewer, repo: repo, logger: logger}
}

// Review runs the two-pass review and stores the report. A storage failure
// is logged; the caller still gets the report.
func (s *Service) Review(ctx context.Context, fens []string, opts chess.ReviewOptions) (chess.ReviewReport, error) {
	report, err := s.reviewer.ReviewPositionsFast(ctx, fens, opts)
	if err != nil {
		return chess.ReviewReport{}, err
	}
	if err := s.repo.SaveReport(context.WithoutCancel(ctx), report); err != nil {
		s.logger.Warn("review_report_save_failed", zap.String("id", report.ID), zap.Error(err))
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, id string) (chess.ReviewReport, error) {
	return s.repo.GetReport(ctx, id)
}
