package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunLedger(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	ctx := context.Background()
	started := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)

	okRun, err := pool.StartRun(ctx, "cli", started)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := pool.CompleteRun(ctx, okRun, RunCounts{RecordsFetched: 10, Inserted: 3, Closed: 1}, started.Add(time.Minute)); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	failedRun, err := pool.StartRun(ctx, "api", started.Add(time.Hour))
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	cause := errors.New(strings.Repeat("x", maxRunErrorLength+100))
	if err := pool.FailRun(ctx, failedRun, RunCounts{}, cause, started.Add(time.Hour+time.Second)); err != nil {
		t.Fatalf("fail run: %v", err)
	}

	runs, err := pool.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("unexpected run count: %d", len(runs))
	}
	if runs[0].RunUUID != failedRun || runs[0].Status != RunStatusFailed {
		t.Fatalf("expected newest failed run first, got %+v", runs[0])
	}
	if runs[0].ErrorMessage == nil || len(*runs[0].ErrorMessage) != maxRunErrorLength {
		t.Fatalf("expected truncated error message")
	}
	if runs[1].Status != RunStatusCompleted || runs[1].Inserted != 3 || runs[1].Closed != 1 {
		t.Fatalf("unexpected completed run: %+v", runs[1])
	}

	if err := pool.CompleteRun(ctx, "missing", RunCounts{}, started); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}

func TestRunLockerExpiry(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	ctx := context.Background()

	now := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	locker := pool.RunLocker("sync", 30*time.Minute, clock)

	ok, err := locker.TryLock(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("expected first lock to succeed, got %v %v", ok, err)
	}
	ok, err = locker.TryLock(ctx, "run-b")
	if err != nil || ok {
		t.Fatalf("expected second holder to be refused, got %v %v", ok, err)
	}

	now = now.Add(31 * time.Minute)
	ok, err = locker.TryLock(ctx, "run-b")
	if err != nil || !ok {
		t.Fatalf("expected stale lock to be taken over, got %v %v", ok, err)
	}

	if err := locker.Unlock(ctx, "run-a"); err != nil {
		t.Fatalf("unlock by old holder: %v", err)
	}
	ok, err = locker.TryLock(ctx, "run-c")
	if err != nil || ok {
		t.Fatalf("expected old holder unlock to be a no-op, got %v %v", ok, err)
	}

	if err := locker.Unlock(ctx, "run-b"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, err = locker.TryLock(ctx, "run-c")
	if err != nil || !ok {
		t.Fatalf("expected lock after release, got %v %v", ok, err)
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE INDEX a ON t (x);\n\nINSERT INTO t VALUES (1);\n")
	if len(got) != 2 || got[0] != "CREATE INDEX a ON t (x)" || got[1] != "INSERT INTO t VALUES (1)" {
		t.Fatalf("unexpected statements: %q", got)
	}
}
