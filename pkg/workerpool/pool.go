// Package workerpool implementa un pool de workers fijo con cola acotada.
// Submit nunca bloquea: si la cola está llena la tarea se rechaza con ErrQueueFull.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrQueueFull = errors.New("workerpool: cola llena, tarea rechazada")
	ErrClosed    = errors.New("workerpool: pool cerrado")
)

// Config configuración explícita del pool; se crea al arranque del proceso.
type Config struct {
	Name      string
	Workers   int
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize < 0 {
		c.QueueSize = 0
	}
	return c
}

// Pool workers fijos leyendo de una cola con capacidad QueueSize.
type Pool struct {
	cfg      Config
	tasks    chan func()
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	rejected atomic.Int64
	panics   atomic.Int64
}

// New arranca los workers.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:   cfg,
		tasks: make(chan func(), cfg.QueueSize),
	}
	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
		}
	}()
	task()
}

// Submit encola la tarea o la rechaza. El rechazo se cuenta y se devuelve al llamador.
// Con QueueSize 0 la tarea solo se acepta si hay un worker esperando.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		p.rejected.Add(1)
		return fmt.Errorf("%w (%s)", ErrQueueFull, p.cfg.Name)
	}
}

// Shutdown deja de aceptar tareas, drena la cola y espera a los workers o a ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name nombre del pool (para logs).
func (p *Pool) Name() string { return p.cfg.Name }

// Workers cantidad de workers.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Rejected total de tareas rechazadas desde el arranque.
func (p *Pool) Rejected() int64 { return p.rejected.Load() }

// Panics total de tareas que terminaron en panic (el worker sigue vivo).
func (p *Pool) Panics() int64 { return p.panics.Load() }
