package entity

import (
	"context"
	"sync"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

type entityKey struct {
	kind model.EntityKind
	id   int64
}

// MemoryStore keeps reference entities in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[entityKey]*model.Entity
}

// NewMemory constructs an empty in-memory entity store.
func NewMemory() *MemoryStore {
	return &MemoryStore{entities: make(map[entityKey]*model.Entity)}
}

// Put inserts or replaces an entity. Test seeding helper.
func (s *MemoryStore) Put(e *model.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *e
	s.entities[entityKey{kind: e.Kind, id: e.ID}] = &stored
}

func (s *MemoryStore) Get(_ context.Context, kind model.EntityKind, id int64) (*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityKey{kind: kind, id: id}]
	if !ok {
		return nil, NotFound(kind, id)
	}
	out := *e
	return &out, nil
}
