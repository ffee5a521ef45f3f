package auditdispatch

import (
	"context"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"

	"go.uber.org/zap"
)

// Worker drains the audit outbox to the event publisher on a fixed interval.
type Worker struct {
	enabled         bool
	pollInterval    time.Duration
	batchSize       int
	workerID        string
	leaseDuration   time.Duration
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	dispatchUseCase portsin.DispatchAuditEventsUseCase
	logger          *zap.Logger
}

func NewWorker(
	enabled bool,
	pollInterval time.Duration,
	batchSize int,
	workerID string,
	leaseDuration time.Duration,
	initialBackoff time.Duration,
	maxBackoff time.Duration,
	dispatchUseCase portsin.DispatchAuditEventsUseCase,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		enabled:         enabled,
		pollInterval:    pollInterval,
		batchSize:       batchSize,
		workerID:        workerID,
		leaseDuration:   leaseDuration,
		initialBackoff:  initialBackoff,
		maxBackoff:      maxBackoff,
		dispatchUseCase: dispatchUseCase,
		logger:          logger.With(zap.String("component", "audit_dispatcher"), zap.String("worker_id", workerID)),
	}
}

func (w *Worker) Enabled() bool {
	return w != nil && w.enabled
}

func (w *Worker) Start(ctx context.Context) {
	if w == nil || !w.enabled || w.dispatchUseCase == nil || w.pollInterval <= 0 {
		return
	}

	w.logger.Info("audit dispatcher started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
		zap.Duration("lease_duration", w.leaseDuration),
	)

	w.runCycle(ctx)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("audit dispatcher stopped")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	startedAt := time.Now().UTC()
	output, appErr := w.dispatchUseCase.Execute(ctx, dto.DispatchAuditEventsCommand{
		Now:            startedAt,
		BatchSize:      w.batchSize,
		WorkerID:       w.workerID,
		LeaseDuration:  w.leaseDuration,
		InitialBackoff: w.initialBackoff,
		MaxBackoff:     w.maxBackoff,
	})
	if appErr != nil {
		w.logger.Error("audit dispatch cycle failed",
			zap.String("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Any("details", appErr.Details),
		)
		return
	}
	if output.Claimed == 0 {
		return
	}

	w.logger.Info("audit dispatch cycle completed",
		zap.Int("claimed", output.Claimed),
		zap.Int("published", output.Published),
		zap.Int("retried", output.Retried),
		zap.Int("failed", output.Failed),
		zap.Int("skipped", output.Skipped),
		zap.Int("errors", output.Errors),
		zap.Int64("latency_ms", time.Since(startedAt).Milliseconds()),
	)
}
