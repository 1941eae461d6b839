package review

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

const defaultMemoryCapacity = 256

// memrepo keeps the most recent reports in memory when no database is
// configured. The oldest report is evicted first.
type memrepo struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	reports  map[string]chess.ReviewReport
}

func NewMemoryRepository(capacity int) Repository {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &memrepo{capacity: capacity, reports: make(map[string]chess.ReviewReport)}
}

func (m *memrepo) SaveReport(ctx context.Context, report chess.ReviewReport) error {
	id := strings.TrimSpace(report.ID)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reports[id]; !exists {
		m.order = append(m.order, id)
	}
	m.reports[id] = cloneReport(report)
	for len(m.order) > m.capacity {
		delete(m.reports, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *memrepo) GetReport(ctx context.Context, id string) (chess.ReviewReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[strings.TrimSpace(id)]
	if !ok {
		return chess.ReviewReport{}, ErrNotFound
	}
	return cloneReport(r), nil
}

func cloneReport(r chess.ReviewReport) chess.ReviewReport {
	r.Positions = append([]chess.ReviewPosition(nil), r.Positions...)
	r.Deepened = append([]int(nil), r.Deepened...)
	return r
}
