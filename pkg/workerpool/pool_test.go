package workerpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/stock-replenishment/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_EjecutaTodasLasTareas(t *testing.T) {
	p := workerpool.New(workerpool.Config{Name: "test", Workers: 3, QueueSize: 10})
	var n atomic.Int64
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func() { n.Add(1) }))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int64(10), n.Load())
}

// Con el worker ocupado y la cola llena, la siguiente tarea se rechaza de forma observable.
func TestPool_RechazaCuandoLaColaEstaLlena(t *testing.T) {
	p := workerpool.New(workerpool.Config{Name: "redistribution", Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(func() {}), "la cola tiene capacidad para una tarea")

	err := p.Submit(func() {})
	require.ErrorIs(t, err, workerpool.ErrQueueFull)
	assert.Contains(t, err.Error(), "redistribution")
	assert.Equal(t, int64(1), p.Rejected())

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_SubmitTrasShutdown(t *testing.T) {
	p := workerpool.New(workerpool.Config{Workers: 1, QueueSize: 1})
	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Submit(func() {}), workerpool.ErrClosed)
}

func TestPool_PanicNoMataAlWorker(t *testing.T) {
	p := workerpool.New(workerpool.Config{Workers: 1, QueueSize: 2})
	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("el worker no procesó la tarea posterior al panic")
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int64(1), p.Panics())
}

func TestPool_ShutdownRespetaContexto(t *testing.T) {
	p := workerpool.New(workerpool.Config{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
	close(release)
}
