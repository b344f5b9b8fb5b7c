// Package data reads observation rows. It is the only place that
// knows how rows are selected, ordered and disambiguated; assemblers
// build output values on top of it.
package data

import (
	"context"
	"time"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

// TimeColumn names the sampling-time column a lookup keys on.
type TimeColumn string

const (
	ColumnSamplingStart TimeColumn = query.ColSamplingTimeStart
	ColumnSamplingEnd   TimeColumn = query.ColSamplingTimeEnd
)

// Store exposes the read operations of the observation table. All
// reads exclude soft-deleted rows; a zero-row match is not an error
// and yields an empty slice or nil single value.
type Store interface {
	// GetAll returns every observation of the dataset matching the
	// query, ordered ascending by sampling end time.
	GetAll(ctx context.Context, dataset *model.Dataset, q *query.Query) ([]model.Observation, error)

	// ClosestBefore returns the single row whose sampling start lies
	// strictly before lowerBound, closest to it, or nil.
	ClosestBefore(ctx context.Context, dataset *model.Dataset, lowerBound time.Time, q *query.Query) (*model.Observation, error)

	// ClosestAfter returns the single row whose sampling end lies
	// strictly after upperBound, closest to it, or nil.
	ClosestAfter(ctx context.Context, dataset *model.Dataset, upperBound time.Time, q *query.Query) (*model.Observation, error)

	// AtResultTime returns the row at the exact timestamp on the given
	// time column, disambiguated by result time: all assertions pass
	// through unfiltered, explicit result times restrict, and by
	// default the most recently asserted value wins.
	AtResultTime(ctx context.Context, dataset *model.Dataset, timestamp time.Time, column TimeColumn, q *query.Query) (*model.Observation, error)
}
