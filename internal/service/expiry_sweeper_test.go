package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cendekia-fest/kompetisi-api/pkg/jobs"
)

type mockSweeper struct {
	deleted int64
	err     error
	calls   int
}

func (m *mockSweeper) SweepExpired(ctx context.Context) (int64, error) {
	m.calls++
	return m.deleted, m.err
}

type mockSweepMetrics struct {
	reclaimed int64
}

func (m *mockSweepMetrics) RecordExpiredReclaimed(count int64) {
	m.reclaimed += count
}

func TestExpirySweepWorkerHandle(t *testing.T) {
	sweeper := &mockSweeper{deleted: 7}
	metrics := &mockSweepMetrics{}
	worker := NewExpirySweepWorker(sweeper, metrics, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "expiry_sweep"})
	require.NoError(t, err)
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, int64(7), metrics.reclaimed)
}

func TestExpirySweepWorkerHandlePropagatesError(t *testing.T) {
	sweeper := &mockSweeper{err: errors.New("db down")}
	worker := NewExpirySweepWorker(sweeper, &mockSweepMetrics{}, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "expiry_sweep"})
	require.Error(t, err)
	assert.Equal(t, int64(0), (&mockSweepMetrics{}).reclaimed)
}

type mockSweepQueue struct {
	mu       sync.Mutex
	enqueued []jobs.Job
}

func (m *mockSweepQueue) Enqueue(job jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockSweepQueue) jobs() []jobs.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]jobs.Job(nil), m.enqueued...)
}

func TestExpirySweepWorkerNilMetrics(t *testing.T) {
	sweeper := &mockSweeper{deleted: 3}
	worker := NewExpirySweepWorker(sweeper, nil, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-2", Type: "expiry_sweep"})
	require.NoError(t, err)
}

func TestExpirySweepSchedulerEnqueues(t *testing.T) {
	queue := &mockSweepQueue{}
	scheduler := NewExpirySweepScheduler(queue, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	scheduler.Stop()

	enqueued := queue.jobs()
	require.NotEmpty(t, enqueued)
	assert.Equal(t, "expiry_sweep", enqueued[0].Type)
	assert.NotEmpty(t, enqueued[0].ID)
}
