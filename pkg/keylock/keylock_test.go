package keylock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/stock-replenishment/pkg/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SerializaMismaClave(t *testing.T) {
	l := keylock.New()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "A->B", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLock_TimeoutSiLaClaveSigueOcupada(t *testing.T) {
	l := keylock.New()
	unlock, err := l.Lock(context.Background(), "k", 0)
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "k", 10*time.Millisecond)
	assert.ErrorIs(t, err, keylock.ErrTimeout)
}

func TestLock_ClavesDistintasNoSeBloquean(t *testing.T) {
	l := keylock.New()
	u1, err := l.Lock(context.Background(), "A->B", time.Second)
	require.NoError(t, err)
	defer u1()
	u2, err := l.Lock(context.Background(), "B->A", 10*time.Millisecond)
	require.NoError(t, err)
	u2()
}

func TestTryLock(t *testing.T) {
	l := keylock.New()
	unlock, ok := l.TryLock("company-1")
	require.True(t, ok)
	_, ok = l.TryLock("company-1")
	assert.False(t, ok)
	unlock()
	unlock() // idempotente
	u, ok := l.TryLock("company-1")
	assert.True(t, ok)
	u()
}

func TestLock_CancelacionDeContexto(t *testing.T) {
	l := keylock.New()
	unlock, _ := l.Lock(context.Background(), "k", 0)
	defer unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Lock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
