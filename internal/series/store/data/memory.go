package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

// MemoryStore keeps observations in memory. It mirrors the Postgres
// store's selection semantics through the query package's pure
// predicates, so unit tests exercise the same behavior.
type MemoryStore struct {
	mu           sync.RWMutex
	observations map[int64][]model.Observation
	nextID       int64
}

// NewMemory constructs an empty in-memory observation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{observations: make(map[int64][]model.Observation)}
}

// Add inserts an observation, assigning an id when absent. Test and
// ingestion helper; the query engine itself never writes observations.
func (s *MemoryStore) Add(obs model.Observation) model.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obs.ID == 0 {
		s.nextID++
		obs.ID = s.nextID
	}
	s.observations[obs.DatasetID] = append(s.observations[obs.DatasetID], obs)
	return obs
}

func (s *MemoryStore) GetAll(_ context.Context, dataset *model.Dataset, q *query.Query) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !q.MatchesDataset(dataset) {
		return nil, nil
	}

	var matched []model.Observation
	for _, obs := range s.observations[dataset.ID] {
		obs := obs
		if q.MatchesObservation(&obs) {
			matched = append(matched, obs)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].SamplingTimeEnd.Before(matched[j].SamplingTimeEnd)
	})
	if q.Limit > 0 {
		matched = paginate(matched, q.Offset, q.Limit)
	}
	return matched, nil
}

func (s *MemoryStore) ClosestBefore(_ context.Context, dataset *model.Dataset, lowerBound time.Time, q *query.Query) (*model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Observation
	for _, obs := range s.observations[dataset.ID] {
		obs := obs
		if !matchesUnbounded(&obs, q) || !obs.SamplingTimeStart.Before(lowerBound) {
			continue
		}
		if best == nil || obs.SamplingTimeStart.After(best.SamplingTimeStart) ||
			(obs.SamplingTimeStart.Equal(best.SamplingTimeStart) && obs.ResultTime.After(best.ResultTime)) {
			best = &obs
		}
	}
	return best, nil
}

func (s *MemoryStore) ClosestAfter(_ context.Context, dataset *model.Dataset, upperBound time.Time, q *query.Query) (*model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Observation
	for _, obs := range s.observations[dataset.ID] {
		obs := obs
		if !matchesUnbounded(&obs, q) || !obs.SamplingTimeEnd.After(upperBound) {
			continue
		}
		if best == nil || obs.SamplingTimeEnd.Before(best.SamplingTimeEnd) ||
			(obs.SamplingTimeEnd.Equal(best.SamplingTimeEnd) && obs.ResultTime.After(best.ResultTime)) {
			best = &obs
		}
	}
	return best, nil
}

func (s *MemoryStore) AtResultTime(_ context.Context, dataset *model.Dataset, timestamp time.Time, column TimeColumn, q *query.Query) (*model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []model.Observation
	for _, obs := range s.observations[dataset.ID] {
		obs := obs
		if !matchesUnbounded(&obs, q) || !columnTime(&obs, column).Equal(timestamp) {
			continue
		}
		candidates = append(candidates, obs)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	switch {
	case q.AllResultTimes():
		return &candidates[0], nil
	case len(q.ExplicitResultTimes()) > 0:
		for _, obs := range candidates {
			obs := obs
			for _, rt := range q.ExplicitResultTimes() {
				if obs.ResultTime.Equal(rt) {
					return &obs, nil
				}
			}
		}
		return nil, nil
	default:
		// most-recently-asserted value wins
		best := candidates[0]
		for _, obs := range candidates[1:] {
			if obs.ResultTime.After(best.ResultTime) {
				best = obs
			}
		}
		return &best, nil
	}
}

func matchesUnbounded(obs *model.Observation, q *query.Query) bool {
	return !obs.Deleted && obs.Parent == q.ComplexParent
}

func columnTime(obs *model.Observation, column TimeColumn) time.Time {
	if column == ColumnSamplingStart {
		return obs.SamplingTimeStart
	}
	return obs.SamplingTimeEnd
}

func paginate(values []model.Observation, offset, limit uint64) []model.Observation {
	if offset >= uint64(len(values)) {
		return nil
	}
	values = values[offset:]
	if limit < uint64(len(values)) {
		values = values[:limit]
	}
	return values
}
