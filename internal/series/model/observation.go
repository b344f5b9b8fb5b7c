package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObservationValue is the sparse raw payload of an observation. Exactly
// one field is populated, selected by the owning dataset's value type.
type ObservationValue struct {
	Quantity *decimal.Decimal
	Text     *string
	Count    *int64
	Record   map[string]any
}

// IsEmpty reports whether no payload field is populated.
func (v ObservationValue) IsEmpty() bool {
	return v.Quantity == nil && v.Text == nil && v.Count == nil && v.Record == nil
}

// Observation is one raw timestamped row belonging to a dataset.
// Read-only from the query engine's perspective; ingestion writes it.
type Observation struct {
	ID        int64
	DatasetID int64

	SamplingTimeStart time.Time
	SamplingTimeEnd   time.Time
	// ResultTime is when the value was asserted, distinct from the
	// sampling time. Picks the authoritative row when multiple
	// assertions exist for the same sampling instant.
	ResultTime time.Time

	// Deleted rows are excluded from every read.
	Deleted bool
	// Parent marks a complex observation composed of child records.
	Parent bool

	// Geometry is opaque GeoJSON, carried through untouched.
	Geometry []byte

	Value ObservationValue
}

// SamplingInterval reports whether the observation covers a time span
// rather than an instant.
func (o *Observation) SamplingInterval() bool {
	return !o.SamplingTimeStart.IsZero() && !o.SamplingTimeStart.Equal(o.SamplingTimeEnd)
}

// QuantityValue is a convenience constructor used by ingestion and tests.
func QuantityValue(v decimal.Decimal) ObservationValue {
	return ObservationValue{Quantity: &v}
}

// TextValue is a convenience constructor used by ingestion and tests.
func TextValue(v string) ObservationValue {
	return ObservationValue{Text: &v}
}

// CountValue is a convenience constructor used by ingestion and tests.
func CountValue(v int64) ObservationValue {
	return ObservationValue{Count: &v}
}

// RecordValue is a convenience constructor used by ingestion and tests.
func RecordValue(v map[string]any) ObservationValue {
	return ObservationValue{Record: v}
}
