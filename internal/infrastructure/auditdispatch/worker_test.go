//go:build !integration

package auditdispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

func TestWorkerDisabled(t *testing.T) {
	fakeUseCase := &fakeDispatchUseCase{}
	worker := NewWorker(
		false,
		10*time.Millisecond,
		10,
		"worker-a",
		30*time.Second,
		5*time.Second,
		60*time.Second,
		fakeUseCase,
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	worker.Start(ctx)

	if fakeUseCase.calls() != 0 {
		t.Fatalf("expected no calls for disabled worker, got %d", fakeUseCase.calls())
	}
}

func TestWorkerRunsCycleWithBackoffConfig(t *testing.T) {
	fakeUseCase := &fakeDispatchUseCase{}
	worker := NewWorker(
		true,
		10*time.Millisecond,
		25,
		"worker-a",
		30*time.Second,
		5*time.Second,
		60*time.Second,
		fakeUseCase,
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	worker.Start(ctx)

	if fakeUseCase.calls() == 0 {
		t.Fatalf("expected at least one cycle call")
	}
	last := fakeUseCase.lastCommand()
	if last.WorkerID != "worker-a" {
		t.Fatalf("expected worker id worker-a, got %s", last.WorkerID)
	}
	if last.BatchSize != 25 {
		t.Fatalf("expected batch size 25, got %d", last.BatchSize)
	}
	if last.InitialBackoff != 5*time.Second || last.MaxBackoff != 60*time.Second {
		t.Fatalf("unexpected backoff config initial=%s max=%s", last.InitialBackoff, last.MaxBackoff)
	}
}

func TestWorkerSurvivesFailedCycle(t *testing.T) {
	fakeUseCase := &fakeDispatchUseCase{err: apperrors.NewUnavailable("audit_outbox_unavailable", "db down", nil)}
	worker := NewWorker(true, 5*time.Millisecond, 10, "worker-a", time.Second, time.Second, time.Second, fakeUseCase, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	worker.Start(ctx)

	if fakeUseCase.calls() < 2 {
		t.Fatalf("expected worker to keep polling after a failure, got %d calls", fakeUseCase.calls())
	}
}

type fakeDispatchUseCase struct {
	mu        sync.Mutex
	callCount int
	last      dto.DispatchAuditEventsCommand
	err       *apperrors.AppError
}

func (f *fakeDispatchUseCase) Execute(
	_ context.Context,
	command dto.DispatchAuditEventsCommand,
) (dto.DispatchAuditEventsOutput, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.last = command
	if f.err != nil {
		return dto.DispatchAuditEventsOutput{}, f.err
	}
	return dto.DispatchAuditEventsOutput{Claimed: 2, Published: 2}, nil
}

func (f *fakeDispatchUseCase) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func (f *fakeDispatchUseCase) lastCommand() dto.DispatchAuditEventsCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
