package assembler

import "github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"

// payloadMapper converts a raw observation payload into the typed
// output form of one value type. Returns nil when the payload field
// for that type is absent.
type payloadMapper interface {
	Payload(value model.ObservationValue) any
}

type quantityMapper struct{}

func (quantityMapper) Payload(value model.ObservationValue) any {
	if value.Quantity == nil {
		return nil
	}
	return *value.Quantity
}

type textMapper struct{}

func (textMapper) Payload(value model.ObservationValue) any {
	if value.Text == nil {
		return nil
	}
	return *value.Text
}

type countMapper struct{}

func (countMapper) Payload(value model.ObservationValue) any {
	if value.Count == nil {
		return nil
	}
	return *value.Count
}

type recordMapper struct{}

func (recordMapper) Payload(value model.ObservationValue) any {
	if value.Record == nil {
		return nil
	}
	return value.Record
}
