package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jmanzanog/portfolio-valuator/internal/application"
	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

var ErrNoSnapshot = application.ErrNoCompletedCycle

// SnapshotRepository keeps the results of the most recently completed cycle.
// Results are staged per cycle and published together with the summary, so
// readers never observe a half-finished cycle.
type SnapshotRepository struct {
	mu         sync.RWMutex
	pending    map[string][]domain.ValuationResult
	valuations []domain.ValuationResult
	summary    *domain.PortfolioSummary
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		pending: make(map[string][]domain.ValuationResult),
	}
}

func (r *SnapshotRepository) ReportValuation(ctx context.Context, result domain.ValuationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[result.CycleID] = append(r.pending[result.CycleID], result)
}

func (r *SnapshotRepository) ReportSummary(ctx context.Context, summary domain.PortfolioSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := r.pending[summary.CycleID]
	delete(r.pending, summary.CycleID)

	// An overlapping cycle that started earlier may finish later; keep the newest.
	if r.summary != nil && summary.Timestamp.Before(r.summary.Timestamp) {
		return
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	r.valuations = results
	r.summary = &summary
}

// LatestSnapshot returns the results and summary of the last completed cycle
// as one consistent pair. Results are ordered by instrument name.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context) ([]domain.ValuationResult, domain.PortfolioSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.summary == nil {
		return nil, domain.PortfolioSummary{}, ErrNoSnapshot
	}

	out := make([]domain.ValuationResult, len(r.valuations))
	copy(out, r.valuations)
	return out, *r.summary, nil
}

func (r *SnapshotRepository) LatestValuations(ctx context.Context) ([]domain.ValuationResult, error) {
	valuations, _, err := r.LatestSnapshot(ctx)
	return valuations, err
}

func (r *SnapshotRepository) LatestSummary(ctx context.Context) (domain.PortfolioSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.summary == nil {
		return domain.PortfolioSummary{}, ErrNoSnapshot
	}
	return *r.summary, nil
}
