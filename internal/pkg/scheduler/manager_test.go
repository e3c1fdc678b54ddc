package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) ReconcileAll(ctx context.Context) (int, error) {
	r.calls.Add(1)
	return 1, r.err
}

func TestManagerRunsImmediatelyAndOnTick(t *testing.T) {
	rec := &countingReconciler{}
	m := NewManager(rec, 10*time.Millisecond)

	assert.False(t, m.IsRunning())
	m.Start()
	m.Start() // second start is a no-op
	assert.True(t, m.IsRunning())

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.IsRunning())
	after := rec.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.calls.Load(), "no sweeps after Stop")
}

func TestManagerRestart(t *testing.T) {
	rec := &countingReconciler{}
	m := NewManager(rec, time.Hour)

	m.Start()
	assert.Eventually(t, func() bool { return rec.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()

	m.Start()
	assert.Eventually(t, func() bool { return rec.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	m.Stop()
}

func TestRunReconcileSurvivesErrors(t *testing.T) {
	rec := &countingReconciler{err: errors.New("db down")}
	m := NewManager(rec, 0)

	assert.Equal(t, time.Hour, m.interval)
	m.RunReconcile(context.Background())
	assert.Equal(t, int32(1), rec.calls.Load())
}
