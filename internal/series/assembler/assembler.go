package assembler

import (
	"context"
	"fmt"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

// Assembler converts raw observations of one value type into output
// values and assembles series under a query context. All value
// production tolerates nil inputs and emits nil outputs; missing rows
// are never errors.
type Assembler struct {
	mapper payloadMapper
	deps   Deps
}

// AssembleValue converts one observation into an output value. Returns
// nil for a nil observation. A payload matching the dataset's no-data
// sentinel yields a value with a timestamp and a nil payload: a known
// absence, not an unknown.
func (a *Assembler) AssembleValue(ctx context.Context, obs *model.Observation, ds *model.Dataset, q *query.Query) *model.Value {
	if obs == nil {
		return nil
	}

	value := a.prepareValue(obs, q)
	if !a.deps.Policy.IsNoData(a.serviceFor(ctx, ds), obs.Value) {
		value.Payload = a.mapper.Payload(obs.Value)
	}
	return value
}

// prepareValue populates the time and geometry fields shared by every
// value type.
func (a *Assembler) prepareValue(obs *model.Observation, q *query.Query) *model.Value {
	value := &model.Value{
		Timestamp: obs.SamplingTimeEnd,
		Geometry:  obs.Geometry,
	}
	if q.ShowTimeIntervals && obs.SamplingInterval() {
		start := obs.SamplingTimeStart
		value.TimeStart = &start
	}
	return value
}

// AssembleSeries fetches and assembles all observations of the dataset
// matching the query, ordered by sampling end time.
func (a *Assembler) AssembleSeries(ctx context.Context, ds *model.Dataset, q *query.Query) (*model.Data, error) {
	observations, err := a.deps.Data.GetAll(ctx, ds, q)
	if err != nil {
		return nil, fmt.Errorf("assemble series for dataset %d: %w", ds.ID, err)
	}

	result := &model.Data{}
	for i := range observations {
		if value := a.AssembleValue(ctx, &observations[i], ds, q); value != nil {
			result.Values = append(result.Values, *value)
		}
	}
	return result, nil
}

// AssembleExpandedSeries assembles the series plus its metadata block:
// the closest values outside the window edges and the reference series
// attached to the dataset.
func (a *Assembler) AssembleExpandedSeries(ctx context.Context, ds *model.Dataset, q *query.Query) (*model.Data, error) {
	result, err := a.AssembleSeries(ctx, ds, q)
	if err != nil {
		return nil, err
	}
	metadata := &model.SeriesMetadata{}
	result.Metadata = metadata

	// One boundary value on each side: before the window start and
	// after the window end.
	before, err := a.deps.Data.ClosestBefore(ctx, ds, q.Timespan.Start, q)
	if err != nil {
		return nil, fmt.Errorf("boundary value before window: %w", err)
	}
	after, err := a.deps.Data.ClosestAfter(ctx, ds, q.Timespan.End, q)
	if err != nil {
		return nil, fmt.Errorf("boundary value after window: %w", err)
	}
	metadata.ValueBeforeTimespan = a.AssembleValue(ctx, before, ds, q)
	metadata.ValueAfterTimespan = a.AssembleValue(ctx, after, ds, q)

	if len(ds.ReferenceDatasetIDs) > 0 {
		metadata.ReferenceSeries, err = a.assembleReferenceSeries(ctx, ds, q)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// assembleReferenceSeries assembles each published reference dataset
// under the same context, expanding thin series to the window edges.
func (a *Assembler) assembleReferenceSeries(ctx context.Context, ds *model.Dataset, q *query.Query) (map[string][]model.Value, error) {
	referenceSeries := make(map[string][]model.Value)
	for _, refID := range ds.ReferenceDatasetIDs {
		ref, err := a.deps.Datasets.Get(ctx, refID)
		if err != nil {
			return nil, fmt.Errorf("resolve reference dataset %d: %w", refID, err)
		}
		if ref == nil || !ref.Published || ref.Deleted {
			continue
		}

		refData, err := a.AssembleSeries(ctx, ref, q)
		if err != nil {
			return nil, err
		}
		values := refData.Values
		if len(values) <= 1 {
			values, err = a.Expand(ctx, ref, q)
			if err != nil {
				return nil, err
			}
		}
		referenceSeries[query.FormatID(ref.ID)] = values
	}
	return referenceSeries, nil
}

// FirstValue assembles the dataset's cached first observation pointer.
// A metadata read, not a range scan.
func (a *Assembler) FirstValue(ctx context.Context, ds *model.Dataset, q *query.Query) *model.Value {
	return a.AssembleValue(ctx, ds.FirstObservation, ds, q)
}

// LastValue assembles the dataset's cached last observation pointer.
func (a *Assembler) LastValue(ctx context.Context, ds *model.Dataset, q *query.Query) *model.Value {
	return a.AssembleValue(ctx, ds.LastObservation, ds, q)
}

// ReferenceValues builds the reference-value outputs of a dataset:
// label, reference dataset id and last known value for each attached
// reference series.
func (a *Assembler) ReferenceValues(ctx context.Context, ds *model.Dataset, q *query.Query) ([]model.ReferenceValueOutput, error) {
	var outputs []model.ReferenceValueOutput
	for _, refID := range ds.ReferenceDatasetIDs {
		ref, err := a.deps.Datasets.Get(ctx, refID)
		if err != nil {
			return nil, fmt.Errorf("resolve reference dataset %d: %w", refID, err)
		}
		if ref == nil {
			continue
		}

		output := model.ReferenceValueOutput{
			ReferenceValueID: query.FormatID(ref.ID),
			LastValue:        a.AssembleValue(ctx, ref.LastObservation, ref, q),
		}
		if ref.ProcedureID != nil && a.deps.Labels != nil {
			label, err := a.deps.Labels.Label(ctx, model.EntityProcedure, *ref.ProcedureID, q.Locale)
			if err != nil {
				a.deps.Logger.WarnContext(ctx, "reference label lookup failed",
					"dataset_id", ref.ID, "error", err)
			} else {
				output.Label = label
			}
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

// serviceFor resolves the dataset's service entity for the no-data
// check. Lookup failures fall back to the global sentinels only; value
// assembly never fails on a missing collaborator.
func (a *Assembler) serviceFor(ctx context.Context, ds *model.Dataset) *model.Entity {
	if ds == nil || ds.ServiceID == nil || a.deps.Entities == nil {
		return nil
	}
	service, err := a.deps.Entities.Get(ctx, model.EntityService, *ds.ServiceID)
	if err != nil {
		a.deps.Logger.WarnContext(ctx, "service lookup failed",
			"dataset_id", ds.ID, "service_id", *ds.ServiceID, "error", err)
		return nil
	}
	return service
}
