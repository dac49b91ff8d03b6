package gamestore

import (
	"context"
	"sync"
)

// MemoryPersister holds the snapshot in memory. Used in tests and when no
// durable backend is configured.
type MemoryPersister struct {
	mu    sync.Mutex
	games Collection
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (p *MemoryPersister) Load(_ context.Context) (Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.games == nil {
		return make(Collection), nil
	}
	return p.games.Clone(), nil
}

func (p *MemoryPersister) Save(_ context.Context, games Collection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.games = games.Clone()
	return nil
}
