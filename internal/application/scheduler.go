package application

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

// OverlapPolicy decides what happens when a trigger fires while a cycle is
// still running.
type OverlapPolicy string

const (
	// OverlapSkip drops the trigger; at most one cycle is in flight.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapAllow starts another cycle alongside the running one.
	OverlapAllow OverlapPolicy = "allow"
)

func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch p := OverlapPolicy(s); p {
	case OverlapSkip, OverlapAllow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overlap policy %q", s)
	}
}

type CycleRunner interface {
	RunCycle(ctx context.Context, registry *domain.Registry) domain.PortfolioSummary
}

// Scheduler runs one cycle as soon as it starts and then one per interval
// until stopped.
type Scheduler struct {
	runner   CycleRunner
	registry *domain.Registry
	interval time.Duration
	policy   OverlapPolicy

	mu       sync.Mutex
	ctx      context.Context
	stopped  bool
	inFlight atomic.Int32
	running  sync.WaitGroup

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewScheduler(runner CycleRunner, registry *domain.Registry, interval time.Duration, policy OverlapPolicy) *Scheduler {
	if policy == "" {
		policy = OverlapSkip
	}
	return &Scheduler{
		runner:   runner,
		registry: registry,
		interval: interval,
		policy:   policy,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled, then waits for
// in-flight cycles to finish.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	slog.Info("Scheduler started", "interval", s.interval, "overlap_policy", s.policy, "instruments", s.registry.Len())

	s.Trigger()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Trigger()
		case <-s.stopChan:
			slog.Info("Scheduler stopped")
			s.drain()
			return
		case <-ctx.Done():
			slog.Info("Scheduler stopped due to context cancellation")
			s.drain()
			return
		}
	}
}

// Trigger starts a cycle now, subject to the overlap policy. It reports
// whether a cycle was started.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.ctx == nil {
		return false
	}

	if s.policy == OverlapSkip {
		if !s.inFlight.CompareAndSwap(0, 1) {
			slog.Warn("Skipping cycle trigger, previous cycle still running")
			return false
		}
	} else {
		s.inFlight.Add(1)
	}

	s.running.Add(1)
	ctx := s.ctx
	go func() {
		defer s.running.Done()
		defer s.inFlight.Add(-1)
		s.runCycle(ctx)
	}()
	return true
}

func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Cycle panicked", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	summary := s.runner.RunCycle(ctx, s.registry)
	slog.Info("Cycle completed",
		"cycle_id", summary.CycleID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", time.Since(start),
	)
}

// InFlight returns the number of cycles currently running.
func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

func (s *Scheduler) drain() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.running.Wait()
}

// Stop asks Start to return. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Done is closed once Start has returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
