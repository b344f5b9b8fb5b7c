package dataset

import (
	"context"
	"sync"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

// MemoryStore keeps datasets in memory. The mutex serializes the
// read-check-write sequence of GetOrInsert the way row locking does in
// Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	datasets map[int64]*model.Dataset
	nextID   int64
}

// NewMemory constructs an empty in-memory dataset store.
func NewMemory() *MemoryStore {
	return &MemoryStore{datasets: make(map[int64]*model.Dataset)}
}

// Put inserts or replaces a dataset. Test seeding helper.
func (s *MemoryStore) Put(ds *model.Dataset) *model.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds.ID == 0 {
		s.nextID++
		ds.ID = s.nextID
	} else if ds.ID > s.nextID {
		s.nextID = ds.ID
	}
	stored := *ds
	s.datasets[stored.ID] = &stored
	return s.copyOf(&stored)
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, nil
	}
	return s.copyOf(ds), nil
}

func (s *MemoryStore) GetOrInsert(_ context.Context, candidate *model.Dataset) (*model.Dataset, Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.datasets {
		if existing.IdentityMatches(candidate) {
			outcome := OutcomeUnchanged
			if MergeRange(existing, candidate) {
				outcome = OutcomeUpdated
			}
			return s.copyOf(existing), outcome, nil
		}
	}

	s.nextID++
	inserted := *candidate
	inserted.ID = s.nextID
	s.datasets[inserted.ID] = &inserted
	return s.copyOf(&inserted), OutcomeCreated, nil
}

func (s *MemoryStore) copyOf(ds *model.Dataset) *model.Dataset {
	out := *ds
	out.ReferenceDatasetIDs = append([]int64(nil), ds.ReferenceDatasetIDs...)
	return &out
}
