package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/marketdata"
	"golang.org/x/sync/errgroup"
)

// Coordinator runs valuation cycles: one independent pipeline per instrument,
// results reported in completion order, one summary at the end.
type Coordinator struct {
	fetcher        marketdata.PageFetcher
	extractor      marketdata.PriceExtractor
	normalizer     *domain.Normalizer
	reporter       Reporter
	maxConcurrency int
	now            func() time.Time
}

func NewCoordinator(fetcher marketdata.PageFetcher, extractor marketdata.PriceExtractor, normalizer *domain.Normalizer, reporter Reporter) *Coordinator {
	return &Coordinator{
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		reporter:   reporter,
		now:        time.Now,
	}
}

// SetMaxConcurrency caps the number of instruments valued at once; n <= 0 means
// one pipeline per instrument.
func (c *Coordinator) SetMaxConcurrency(n int) {
	c.maxConcurrency = n
}

// RunCycle values every instrument of the registry. It always returns a
// summary; failed instruments are reported and left out of the totals.
func (c *Coordinator) RunCycle(ctx context.Context, registry *domain.Registry) domain.PortfolioSummary {
	cycleID := uuid.NewString()
	instruments := registry.Instruments()

	slog.InfoContext(ctx, "Cycle started", "cycle_id", cycleID, "instruments", len(instruments))

	outcomes := make(chan domain.ValuationResult, len(instruments))

	go func() {
		var g errgroup.Group
		if c.maxConcurrency > 0 {
			g.SetLimit(c.maxConcurrency)
		}
		for _, inst := range instruments {
			g.Go(func() error {
				outcomes <- c.valueInstrument(ctx, cycleID, inst)
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	// Single reader: reporting and collection happen here, in completion order.
	results := make([]domain.ValuationResult, 0, len(instruments))
	for result := range outcomes {
		if result.Failed() {
			slog.WarnContext(ctx, "Instrument valuation failed",
				"cycle_id", cycleID,
				"instrument", result.Name,
				"kind", result.ErrorKind(),
				"error", result.Err,
			)
		}
		c.reporter.ReportValuation(ctx, result)
		results = append(results, result)
	}

	summary, err := domain.Summarize(cycleID, c.normalizer.Base(), results, c.now())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to aggregate cycle", "cycle_id", cycleID, "error", err)
	}
	c.reporter.ReportSummary(ctx, summary)

	return summary
}

// valueInstrument runs fetch, extraction and valuation for one instrument.
// Every failure, including a panic, becomes a failed result for that instrument.
func (c *Coordinator) valueInstrument(ctx context.Context, cycleID string, inst domain.Instrument) (result domain.ValuationResult) {
	defer func() {
		if p := recover(); p != nil {
			result = c.failed(cycleID, inst, fmt.Errorf("panic during valuation: %v", p))
		}
	}()

	content, err := c.fetcher.Fetch(ctx, inst.Locator)
	if err != nil {
		if !errors.Is(err, domain.ErrFetch) {
			err = fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}
		return c.failed(cycleID, inst, err)
	}

	price, err := c.extractor.Extract(inst.Name, content)
	if err != nil {
		return c.failed(cycleID, inst, err)
	}

	result, err = domain.Value(inst, price, c.normalizer)
	if err != nil {
		return c.failed(cycleID, inst, err)
	}
	result.CycleID = cycleID
	return result
}

func (c *Coordinator) failed(cycleID string, inst domain.Instrument, err error) domain.ValuationResult {
	result := domain.FailedValuation(inst, domain.NewInstrumentError(inst.Name, err))
	result.CycleID = cycleID
	return result
}
