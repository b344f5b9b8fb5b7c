package model

import "time"

// Value is the assembled output representation of an observation for a
// given dataset and query context. Derived, never persisted. A nil
// Payload with a populated Timestamp is a known absence (no-data
// sentinel), not an unknown.
type Value struct {
	Timestamp time.Time `json:"timestamp"`
	// TimeStart is set when interval output was requested and the
	// observation covers a span rather than an instant.
	TimeStart *time.Time `json:"timestart,omitempty"`
	Payload   any        `json:"value"`
	Geometry  []byte     `json:"geometry,omitempty"`
}

// ReferenceValueOutput pairs a reference dataset's label and id with
// its last known value, exposed alongside a primary dataset's values.
type ReferenceValueOutput struct {
	Label            string `json:"label,omitempty"`
	ReferenceValueID string `json:"referenceValueId"`
	LastValue        *Value `json:"lastValue,omitempty"`
}

// SeriesMetadata enriches an assembled series with boundary values and
// reference series for plotting.
type SeriesMetadata struct {
	// ValueBeforeTimespan is the closest value before the requested
	// window's start, ValueAfterTimespan the closest after its end.
	ValueBeforeTimespan *Value `json:"valueBeforeTimespan,omitempty"`
	ValueAfterTimespan  *Value `json:"valueAfterTimespan,omitempty"`
	// ReferenceSeries maps reference dataset ids to their assembled
	// (possibly boundary-expanded) values.
	ReferenceSeries map[string][]Value `json:"referenceValues,omitempty"`
}

// Data is an assembled series: ordered values plus optional metadata.
type Data struct {
	Values   []Value         `json:"values"`
	Metadata *SeriesMetadata `json:"extra,omitempty"`
}

// DatasetOutput is the metadata-enriched view of a dataset. Condensed
// outputs carry only identity fields; expanded outputs add first/last
// values, reference values and the parameters block.
type DatasetOutput struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	ValueType  ValueType `json:"valueType"`
	FirstValue *Value    `json:"firstValue,omitempty"`
	LastValue  *Value    `json:"lastValue,omitempty"`

	ReferenceValues []ReferenceValueOutput `json:"referenceValues,omitempty"`
	Parameters      *DatasetParameters     `json:"parameters,omitempty"`
}

// DatasetParameters is the expanded metadata block naming the entities
// a dataset is keyed by.
type DatasetParameters struct {
	Service    *EntityOutput `json:"service,omitempty"`
	Offering   *EntityOutput `json:"offering,omitempty"`
	Procedure  *EntityOutput `json:"procedure,omitempty"`
	Phenomenon *EntityOutput `json:"phenomenon,omitempty"`
	Category   *EntityOutput `json:"category,omitempty"`
	Platform   *EntityOutput `json:"platform,omitempty"`
	Feature    *EntityOutput `json:"feature,omitempty"`
}

// EntityOutput is the condensed view of a reference entity.
type EntityOutput struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
