package dataset

import "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"

// MergeRange applies the candidate's first/last-value pointers onto an
// existing dataset under the monotonic rule: the first pointer moves
// only strictly earlier, the last pointer only strictly later, and
// either also fills in when unset. Reports whether anything changed so
// callers can skip redundant writes.
//
// Shared by the Postgres and memory stores so both backends merge
// identically; the function itself is pure.
func MergeRange(existing, candidate *model.Dataset) bool {
	minChanged := false
	maxChanged := false

	if candidate.HasFirstValueAt() &&
		(!existing.HasFirstValueAt() || candidate.FirstValueAt.Before(*existing.FirstValueAt)) {
		minChanged = true
		existing.FirstValueAt = candidate.FirstValueAt
		existing.FirstObservation = candidate.FirstObservation
	}
	if candidate.HasLastValueAt() &&
		(!existing.HasLastValueAt() || candidate.LastValueAt.After(*existing.LastValueAt)) {
		maxChanged = true
		existing.LastValueAt = candidate.LastValueAt
		existing.LastObservation = candidate.LastObservation
	}
	return minChanged || maxChanged
}
