// Package guard keeps a triggered action from running twice at the same time.
package guard

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned when the key is already held.
var ErrInFlight = errors.New("operation already in flight")

// Guard is a single-flight lock keyed by operation.
type Guard interface {
	// Acquire takes key or fails with ErrInFlight. The returned release must be called once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard holds keys in process memory.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryGuard returns an empty guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

// Acquire takes key if nobody holds it.
func (g *MemoryGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, ErrInFlight
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
