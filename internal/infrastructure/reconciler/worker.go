package reconciler

import (
	"context"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"

	"go.uber.org/zap"
)

type Worker struct {
	enabled       bool
	pollInterval  time.Duration
	batchSize     int
	workerID      string
	leaseDuration time.Duration
	staleAfter    time.Duration
	useCase       portsin.ReconcileWithdrawalsUseCase
	logger        *zap.Logger
}

func NewWorker(
	enabled bool,
	pollInterval time.Duration,
	batchSize int,
	workerID string,
	leaseDuration time.Duration,
	staleAfter time.Duration,
	useCase portsin.ReconcileWithdrawalsUseCase,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		enabled:       enabled,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		workerID:      workerID,
		leaseDuration: leaseDuration,
		staleAfter:    staleAfter,
		useCase:       useCase,
		logger:        logger.With(zap.String("component", "withdrawal_reconciler"), zap.String("worker_id", workerID)),
	}
}

func (w *Worker) Enabled() bool {
	return w != nil && w.enabled
}

func (w *Worker) Start(ctx context.Context) {
	if w == nil || !w.enabled || w.useCase == nil || w.pollInterval <= 0 {
		return
	}

	w.logger.Info("withdrawal reconciler started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
		zap.Duration("lease_duration", w.leaseDuration),
		zap.Duration("stale_after", w.staleAfter),
	)

	w.runCycle(ctx)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("withdrawal reconciler stopped")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	startedAt := time.Now().UTC()
	output, appErr := w.useCase.Execute(ctx, dto.ReconcileWithdrawalsCommand{
		Now:           startedAt,
		BatchSize:     w.batchSize,
		WorkerID:      w.workerID,
		LeaseDuration: w.leaseDuration,
		StaleAfter:    w.staleAfter,
	})
	if appErr != nil {
		w.logger.Error("withdrawal reconcile cycle failed",
			zap.String("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Any("details", appErr.Details),
		)
		return
	}

	fields := []zap.Field{
		zap.Int("claimed", output.Claimed),
		zap.Int("settled", output.Settled),
		zap.Int("released", output.Released),
		zap.Int("unresolved", output.Unresolved),
		zap.Int("errors", output.Errors),
		zap.Int64("latency_ms", time.Since(startedAt).Milliseconds()),
	}
	if output.Claimed == 0 {
		w.logger.Debug("withdrawal reconcile cycle completed", fields...)
		return
	}
	w.logger.Info("withdrawal reconcile cycle completed", fields...)
}
