// Package dataset persists dataset records and their cached first/last
// value pointers. GetOrInsert is the ingestion entry point: it locates
// a dataset by its identity tuple and merges range candidates under a
// monotonic update rule.
package dataset

import (
	"context"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

// Outcome reports what a merge-or-create call did.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Store exposes dataset reads and the merge-or-create write.
type Store interface {
	// Get resolves a dataset by id, nil when missing.
	Get(ctx context.Context, id int64) (*model.Dataset, error)

	// GetOrInsert locates an existing dataset by the candidate's
	// identity tuple and merges the candidate's first/last pointers
	// into it, or inserts the candidate when none exists. The
	// read-check-write sequence is serialized per dataset row; no
	// write happens when neither pointer improves, reported as an
	// unchanged outcome.
	GetOrInsert(ctx context.Context, candidate *model.Dataset) (*model.Dataset, Outcome, error)
}
