// Package query translates a normalized request into composable filter
// predicates over the dataset and observation stores. Predicates are
// squirrel Sqlizers for the SQL backend; pure match functions mirror
// the same semantics for the in-memory store and for tests.
package query

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

// ResultTimeMode selects which result times a request wants to see.
type ResultTimeMode int

const (
	// ResultTimeLatest is the default: when multiple result times
	// exist for one sampling instant, the most recently asserted
	// value wins.
	ResultTimeLatest ResultTimeMode = iota
	// ResultTimeAll returns every assertion without grouping.
	ResultTimeAll
	// ResultTimeExplicit restricts rows to the named result times.
	ResultTimeExplicit
)

// Timespan is a closed request window.
type Timespan struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window (inclusive).
func (ts Timespan) Contains(t time.Time) bool {
	return !t.Before(ts.Start) && !t.After(ts.End)
}

// IsZero reports whether no window was requested.
func (ts Timespan) IsZero() bool {
	return ts.Start.IsZero() && ts.End.IsZero()
}

// Query is the immutable request descriptor threaded through all read
// operations. Built once per request.
type Query struct {
	Timespan Timespan

	ResultTimeMode ResultTimeMode
	ResultTimes    []time.Time

	// SpatialFilter is an opaque predicate contributed by the spatial
	// layer; nil means no spatial restriction. The memory store treats
	// any non-nil filter as pass-through.
	SpatialFilter sq.Sqlizer

	// FreeText restricts observations by a caller-supplied search
	// term matched against dataset identifiers.
	FreeText string

	Locale string

	Limit  uint64
	Offset uint64

	// ComplexParent selects parent rows of complex observations
	// instead of plain primary rows.
	ComplexParent bool

	// ShowTimeIntervals emits sampling start alongside sampling end
	// on assembled values.
	ShowTimeIntervals bool

	// Expanded requests the metadata-enriched output: boundary values
	// and reference series on data reads, first/last and parameters on
	// dataset outputs.
	Expanded bool
}

// Defaults returns a query with no filters, matching all published data.
func Defaults() *Query {
	return &Query{}
}

// WithTimespan derives a query scoped to the given window.
func (q *Query) WithTimespan(start, end time.Time) *Query {
	out := *q
	out.Timespan = Timespan{Start: start, End: end}
	return &out
}

// WithLocale derives a query with the given output locale.
func (q *Query) WithLocale(locale string) *Query {
	out := *q
	out.Locale = locale
	return &out
}

// AllResultTimes reports whether the request wants every assertion.
func (q *Query) AllResultTimes() bool {
	return q.ResultTimeMode == ResultTimeAll
}

// ExplicitResultTimes returns the requested result times, empty unless
// the explicit mode is active.
func (q *Query) ExplicitResultTimes() []time.Time {
	if q.ResultTimeMode != ResultTimeExplicit {
		return nil
	}
	return q.ResultTimes
}

// MatchesDataset is the pure twin of the free-text predicate: it
// matches the search term against the dataset identifier, case
// insensitively. An empty term matches everything.
func (q *Query) MatchesDataset(ds *model.Dataset) bool {
	if q.FreeText == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ds.Identifier), strings.ToLower(q.FreeText))
}

// MatchesObservation is the pure twin of the SQL data predicate: it
// applies the deleted, parent-flag and timespan rules to one row. Used
// by the memory store so both backends share one behavior definition.
func (q *Query) MatchesObservation(obs *model.Observation) bool {
	if obs == nil || obs.Deleted {
		return false
	}
	if obs.Parent != q.ComplexParent {
		return false
	}
	if !q.Timespan.IsZero() {
		// A row touches the window when its sampling interval
		// overlaps [start, end].
		if obs.SamplingTimeEnd.Before(q.Timespan.Start) || obs.SamplingTimeStart.After(q.Timespan.End) {
			return false
		}
	}
	if times := q.ExplicitResultTimes(); len(times) > 0 {
		matched := false
		for _, t := range times {
			if obs.ResultTime.Equal(t) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
