package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (f *fakeCleaner) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func (f *fakeCleaner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewResetTokenSweeperRejectsBadSchedule(t *testing.T) {
	if _, err := NewResetTokenSweeper(&fakeCleaner{}, "every now and then", nil); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestSweepUsesClock(t *testing.T) {
	cleaner := &fakeCleaner{n: 4}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sweeper, err := NewResetTokenSweeper(cleaner, "", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewResetTokenSweeper: %v", err)
	}
	sweeper.WithClock(func() time.Time { return now })

	cleared, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if cleared != 4 {
		t.Fatalf("cleared = %d, want 4", cleared)
	}
	if len(cleaner.calls) != 1 || !cleaner.calls[0].Equal(now) {
		t.Fatalf("unexpected cutoff %v", cleaner.calls)
	}
}

func TestSweepWrapsStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	sweeper, _ := NewResetTokenSweeper(&fakeCleaner{err: storeErr}, "@every 1m", nil)

	if _, err := sweeper.Sweep(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	cleaner := &fakeCleaner{}
	sweeper, err := NewResetTokenSweeper(cleaner, "@every 1s", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewResetTokenSweeper: %v", err)
	}

	if err := sweeper.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sweeper.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for cleaner.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if cleaner.callCount() == 0 {
		t.Fatal("sweeper never ran")
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
