// Package keylock provee exclusión mutua por clave con espera acotada.
// Se usa para serializar operaciones sobre un par de ubicaciones o una empresa
// sin bloquear indefinidamente al pool de workers.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout la clave siguió ocupada durante todo el tiempo de espera.
var ErrTimeout = errors.New("keylock: tiempo de espera agotado")

type entry struct {
	sem  chan struct{}
	refs int
}

// Locker mapa de semáforos binarios con conteo de referencias; las entradas sin uso se liberan.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New construye un Locker vacío.
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock espera la clave hasta timeout (0 = sin límite más allá de ctx).
// Devuelve la función de liberación; llamarla más de una vez no tiene efecto.
func (l *Locker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	e := l.acquire(key)

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case e.sem <- struct{}{}:
	case <-timer:
		l.release(key, e)
		return nil, ErrTimeout
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

// TryLock intenta tomar la clave sin esperar.
func (l *Locker) TryLock(key string) (func(), bool) {
	e := l.acquire(key)
	select {
	case e.sem <- struct{}{}:
	default:
		l.release(key, e)
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, true
}
