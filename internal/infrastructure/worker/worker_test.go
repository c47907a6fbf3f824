package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/domain/claim"
)

func TestAdvisorPool_RunsJobs(t *testing.T) {
	p := NewAdvisorPool(PoolConfig{Workers: 2, QueueSize: 8}, zap.NewNop())
	require.NoError(t, p.Start(context.Background()))

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, p.Go(func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	require.NoError(t, p.Stop())
	assert.Equal(t, int32(5), ran.Load())
}

func TestAdvisorPool_Stopped(t *testing.T) {
	p := NewAdvisorPool(PoolConfig{}, zap.NewNop())
	err := p.Go(func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolStopped)
	assert.ErrorIs(t, err, claim.ErrAdvisorUnavailable)
	assert.NoError(t, p.Stop())
}

func TestAdvisorPool_QueueFull(t *testing.T) {
	p := NewAdvisorPool(PoolConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	require.NoError(t, p.Start(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Go(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Go(func(context.Context) {}))

	err := p.Go(func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Equal(t, "advisor_unavailable", claim.Kind(err))

	close(release)
	require.NoError(t, p.Stop())
}

func TestAdvisorPool_StopCancelsJobs(t *testing.T) {
	p := NewAdvisorPool(PoolConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	require.NoError(t, p.Start(context.Background()))

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, p.Go(func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			cancelled.Store(true)
		case <-time.After(5 * time.Second):
		}
	}))
	<-started

	require.NoError(t, p.Stop())
	assert.True(t, cancelled.Load())
}

func TestAdvisorPool_RecoversPanics(t *testing.T) {
	p := NewAdvisorPool(PoolConfig{Workers: 1, QueueSize: 2}, zap.NewNop())
	require.NoError(t, p.Start(context.Background()))

	done := make(chan struct{})
	require.NoError(t, p.Go(func(context.Context) { panic("boom") }))
	require.NoError(t, p.Go(func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	require.NoError(t, p.Stop())
}

type mockWorker struct {
	name     string
	startErr error
	started  bool
	stopped  bool
	log      *[]string
}

func (w *mockWorker) Name() string { return w.name }

func (w *mockWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *mockWorker) Stop() error {
	w.stopped = true
	*w.log = append(*w.log, w.name)
	return nil
}

func TestManager_Lifecycle(t *testing.T) {
	var stops []string
	a := &mockWorker{name: "a", log: &stops}
	b := &mockWorker{name: "b", log: &stops}

	m := NewManager(zap.NewNop())
	m.Register(a)
	m.Register(b)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"b", "a"}, stops)
	require.NoError(t, m.StopAll())
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	var stops []string
	a := &mockWorker{name: "a", log: &stops}
	b := &mockWorker{name: "b", log: &stops, startErr: errors.New("port in use")}

	m := NewManager(zap.NewNop())
	m.Register(a)
	m.Register(b)

	err := m.StartAll(context.Background())
	assert.ErrorContains(t, err, "start b: port in use")
	assert.True(t, a.stopped)
	assert.False(t, m.IsRunning())
}
