package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

// ErrNoCompletedCycle is returned by snapshot readers before the first cycle
// has finished.
var ErrNoCompletedCycle = errors.New("no completed cycle yet")

// Reporter receives every instrument outcome as it completes and one summary
// per cycle. Implementations must return quickly; slow sinks belong behind an
// AsyncReporter.
type Reporter interface {
	ReportValuation(ctx context.Context, result domain.ValuationResult)
	ReportSummary(ctx context.Context, summary domain.PortfolioSummary)
}

// Reporters fans a notification out to several sinks in order.
type Reporters []Reporter

func (rs Reporters) ReportValuation(ctx context.Context, result domain.ValuationResult) {
	for _, r := range rs {
		r.ReportValuation(ctx, result)
	}
}

func (rs Reporters) ReportSummary(ctx context.Context, summary domain.PortfolioSummary) {
	for _, r := range rs {
		r.ReportSummary(ctx, summary)
	}
}

// AsyncReporter hands notifications to a single background worker through a
// bounded queue. When the queue is full the notification is dropped.
type AsyncReporter struct {
	next    Reporter
	queue   chan func()
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewAsyncReporter(next Reporter, buffer int) *AsyncReporter {
	if buffer <= 0 {
		buffer = 1
	}
	a := &AsyncReporter{
		next:  next,
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncReporter) run() {
	defer close(a.done)
	for fn := range a.queue {
		fn()
	}
}

func (a *AsyncReporter) ReportValuation(ctx context.Context, result domain.ValuationResult) {
	ctx = context.WithoutCancel(ctx)
	a.enqueue(ctx, func() { a.next.ReportValuation(ctx, result) })
}

func (a *AsyncReporter) ReportSummary(ctx context.Context, summary domain.PortfolioSummary) {
	ctx = context.WithoutCancel(ctx)
	a.enqueue(ctx, func() { a.next.ReportSummary(ctx, summary) })
}

func (a *AsyncReporter) enqueue(ctx context.Context, fn func()) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}
	select {
	case a.queue <- fn:
	default:
		n := a.dropped.Add(1)
		slog.WarnContext(ctx, "Reporter queue full, dropping notification", "dropped_total", n)
	}
}

// Dropped returns how many notifications were discarded so far.
func (a *AsyncReporter) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting notifications and waits until the queue is drained.
func (a *AsyncReporter) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}
