package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCycleRunner struct {
	mu        sync.Mutex
	runFunc   func(ctx context.Context) domain.PortfolioSummary
	callCount int
}

func (m *mockCycleRunner) RunCycle(ctx context.Context, _ *domain.Registry) domain.PortfolioSummary {
	m.mu.Lock()
	m.callCount++
	fn := m.runFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return domain.PortfolioSummary{CycleID: "test"}
}

func (m *mockCycleRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func emptyRegistry(t *testing.T) *domain.Registry {
	t.Helper()
	n, err := domain.NewNormalizer("SEK", nil)
	require.NoError(t, err)
	reg, err := domain.NewRegistry(nil, n)
	require.NoError(t, err)
	return reg
}

func TestParseOverlapPolicy(t *testing.T) {
	p, err := ParseOverlapPolicy("skip")
	assert.NoError(t, err)
	assert.Equal(t, OverlapSkip, p)

	p, err = ParseOverlapPolicy("allow")
	assert.NoError(t, err)
	assert.Equal(t, OverlapAllow, p)

	_, err = ParseOverlapPolicy("queue")
	assert.Error(t, err)
}

func TestScheduler_Start(t *testing.T) {
	t.Run("Runs first cycle immediately", func(t *testing.T) {
		runner := &mockCycleRunner{}
		scheduler := NewScheduler(runner, emptyRegistry(t), time.Hour, OverlapSkip)

		go scheduler.Start(context.Background())
		defer scheduler.Stop()

		assert.Eventually(t, func() bool { return runner.CallCount() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("Runs cycles on interval", func(t *testing.T) {
		runner := &mockCycleRunner{}
		scheduler := NewScheduler(runner, emptyRegistry(t), 10*time.Millisecond, OverlapSkip)

		go scheduler.Start(context.Background())

		assert.Eventually(t, func() bool { return runner.CallCount() >= 3 }, time.Second, 5*time.Millisecond)

		scheduler.Stop()
		<-scheduler.Done()
	})

	t.Run("Skips triggers while a cycle is running", func(t *testing.T) {
		release := make(chan struct{})
		runner := &mockCycleRunner{
			runFunc: func(ctx context.Context) domain.PortfolioSummary {
				<-release
				return domain.PortfolioSummary{}
			},
		}
		scheduler := NewScheduler(runner, emptyRegistry(t), 5*time.Millisecond, OverlapSkip)

		go scheduler.Start(context.Background())

		assert.Eventually(t, func() bool { return scheduler.InFlight() == 1 }, time.Second, time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, runner.CallCount())
		assert.False(t, scheduler.Trigger())

		close(release)
		scheduler.Stop()
		<-scheduler.Done()
		assert.Equal(t, 0, scheduler.InFlight())
	})

	t.Run("Allows overlapping cycles", func(t *testing.T) {
		release := make(chan struct{})
		runner := &mockCycleRunner{
			runFunc: func(ctx context.Context) domain.PortfolioSummary {
				<-release
				return domain.PortfolioSummary{}
			},
		}
		scheduler := NewScheduler(runner, emptyRegistry(t), 5*time.Millisecond, OverlapAllow)

		go scheduler.Start(context.Background())

		assert.Eventually(t, func() bool { return scheduler.InFlight() >= 2 }, time.Second, time.Millisecond)

		close(release)
		scheduler.Stop()
		<-scheduler.Done()
	})

	t.Run("Recovers from a panicking cycle", func(t *testing.T) {
		runner := &mockCycleRunner{
			runFunc: func(ctx context.Context) domain.PortfolioSummary {
				panic("cycle exploded")
			},
		}
		scheduler := NewScheduler(runner, emptyRegistry(t), 10*time.Millisecond, OverlapSkip)

		go scheduler.Start(context.Background())

		assert.Eventually(t, func() bool { return runner.CallCount() >= 2 }, time.Second, 5*time.Millisecond)

		scheduler.Stop()
		<-scheduler.Done()
	})

	t.Run("Stop waits for the running cycle", func(t *testing.T) {
		started := make(chan struct{})
		var finished bool
		var mu sync.Mutex
		runner := &mockCycleRunner{
			runFunc: func(ctx context.Context) domain.PortfolioSummary {
				close(started)
				time.Sleep(30 * time.Millisecond)
				mu.Lock()
				finished = true
				mu.Unlock()
				return domain.PortfolioSummary{}
			},
		}
		scheduler := NewScheduler(runner, emptyRegistry(t), time.Hour, OverlapSkip)

		go scheduler.Start(context.Background())
		<-started

		scheduler.Stop()
		scheduler.Stop() // idempotent
		<-scheduler.Done()

		mu.Lock()
		defer mu.Unlock()
		assert.True(t, finished)
		assert.False(t, scheduler.Trigger())
	})

	t.Run("Stops on context cancellation", func(t *testing.T) {
		runner := &mockCycleRunner{}
		scheduler := NewScheduler(runner, emptyRegistry(t), 100*time.Millisecond, OverlapSkip)

		ctx, cancel := context.WithCancel(context.Background())
		go scheduler.Start(ctx)
		assert.Eventually(t, func() bool { return runner.CallCount() == 1 }, time.Second, 5*time.Millisecond)

		cancel()

		select {
		case <-scheduler.Done():
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop after context cancellation")
		}
	})
}

func TestScheduler_TriggerBeforeStart(t *testing.T) {
	runner := &mockCycleRunner{}
	scheduler := NewScheduler(runner, emptyRegistry(t), time.Hour, "")

	assert.False(t, scheduler.Trigger())
	assert.Equal(t, 0, runner.CallCount())
}
