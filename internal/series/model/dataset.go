package model

import "time"

// ValueType tags the payload shape of a dataset's observations.
type ValueType string

const (
	ValueTypeQuantity ValueType = "quantity"
	ValueTypeText     ValueType = "text"
	ValueTypeCount    ValueType = "count"
	ValueTypeRecord   ValueType = "record"
)

// ObservationType distinguishes plain time-value observations from
// structured ones. Only simple observations are assembled today; the
// tag keeps the assembler factory keyed the same way new types will be.
type ObservationType string

const (
	ObservationTypeSimple ObservationType = "simple"
)

// Dataset identifies one time series. The identity tuple (procedure,
// phenomenon, feature, platform, offering, category, service) is what
// ingestion matches on; the first/last pointers cache the series range
// so metadata reads stay O(1).
type Dataset struct {
	ID              int64
	Identifier      string
	ValueType       ValueType
	ObservationType ObservationType

	ProcedureID  *int64
	PhenomenonID *int64
	FeatureID    *int64
	PlatformID   *int64
	OfferingID   *int64
	CategoryID   *int64
	ServiceID    *int64

	// Cached range pointers. Invariant: FirstValueAt <= LastValueAt
	// whenever both are set. Updated only through the monotonic merge
	// in the dataset store. The observation pointers make first/last
	// value assembly an O(1) metadata read instead of a range scan.
	FirstValueAt     *time.Time
	LastValueAt      *time.Time
	FirstObservation *Observation
	LastObservation  *Observation

	// Flat, ordered list of reference (baseline) dataset ids. Never a
	// graph; reference-of-reference traversal does not exist.
	ReferenceDatasetIDs []int64

	Published bool
	Deleted   bool
}

// HasFirstValueAt reports whether the first-value pointer is set.
func (d *Dataset) HasFirstValueAt() bool {
	return d.FirstValueAt != nil
}

// HasLastValueAt reports whether the last-value pointer is set.
func (d *Dataset) HasLastValueAt() bool {
	return d.LastValueAt != nil
}

// IdentityMatches reports whether two datasets share the same identity
// tuple. Absent components on the candidate are wildcards; present
// components must match.
func (d *Dataset) IdentityMatches(candidate *Dataset) bool {
	match := func(a, b *int64) bool {
		if b == nil {
			return true
		}
		return a != nil && *a == *b
	}
	return match(d.ProcedureID, candidate.ProcedureID) &&
		match(d.PhenomenonID, candidate.PhenomenonID) &&
		match(d.FeatureID, candidate.FeatureID) &&
		match(d.PlatformID, candidate.PlatformID) &&
		match(d.OfferingID, candidate.OfferingID) &&
		match(d.CategoryID, candidate.CategoryID) &&
		match(d.ServiceID, candidate.ServiceID)
}
