package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/pkg/jobs"
)

type expirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type sweepQueue interface {
	Enqueue(job jobs.Job) error
}

type sweepMetrics interface {
	RecordExpiredReclaimed(count int64)
}

// ExpirySweepWorker reclaims expired provisional registrations in the
// background. Reads already hide expired rows, the sweep only keeps the
// table tidy.
type ExpirySweepWorker struct {
	registrations expirySweeper
	metrics       sweepMetrics
	logger        *zap.Logger
}

// NewExpirySweepWorker constructs ExpirySweepWorker.
func NewExpirySweepWorker(registrations expirySweeper, metrics sweepMetrics, logger *zap.Logger) *ExpirySweepWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweepWorker{registrations: registrations, metrics: metrics, logger: logger}
}

// Handle runs one sweep pass.
func (w *ExpirySweepWorker) Handle(ctx context.Context, job jobs.Job) error {
	deleted, err := w.registrations.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.RecordExpiredReclaimed(deleted)
	}
	if deleted > 0 {
		w.logger.Info("expiry sweep reclaimed registrations", zap.Int64("count", deleted), zap.String("job_id", job.ID))
	}
	return nil
}

// ExpirySweepScheduler enqueues sweep jobs on a fixed interval.
type ExpirySweepScheduler struct {
	queue    sweepQueue
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
}

// NewExpirySweepScheduler constructs ExpirySweepScheduler.
func NewExpirySweepScheduler(queue sweepQueue, interval time.Duration, logger *zap.Logger) *ExpirySweepScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweepScheduler{queue: queue, interval: interval, logger: logger, stop: make(chan struct{})}
}

// Start runs the scheduling loop until Stop is called or the context ends.
func (s *ExpirySweepScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				job := jobs.Job{ID: uuid.NewString(), Type: "expiry_sweep"}
				if err := s.queue.Enqueue(job); err != nil {
					s.logger.Warn("failed to enqueue expiry sweep", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the scheduling loop.
func (s *ExpirySweepScheduler) Stop() {
	close(s.stop)
}
