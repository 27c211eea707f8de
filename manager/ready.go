package manager

import (
	"context"
	"sync"
)

// gate is a one-shot readiness signal.
type gate struct {
	once sync.Once
	ch   chan struct{}
}

func newGate(open bool) *gate {
	g := &gate{ch: make(chan struct{})}
	if open {
		g.open()
	}
	return g
}

func (g *gate) open() {
	g.once.Do(func() { close(g.ch) })
}

func (g *gate) isOpen() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

func (g *gate) wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarkReady opens the readiness gate. Later calls do nothing.
func (m *Manager[T]) MarkReady() {
	m.gate.open()
}

// Ready reports whether the readiness gate is open.
func (m *Manager[T]) Ready() bool {
	return m.gate.isOpen()
}

// WaitUntilReady blocks until the gate opens or ctx is done.
func (m *Manager[T]) WaitUntilReady(ctx context.Context) error {
	return m.gate.wait(ctx)
}
