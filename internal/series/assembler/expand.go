package assembler

import (
	"context"
	"fmt"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

// Expand synthesizes boundary-aligned values for a reference series
// whose requested window holds at most one point. Consumers plot
// primary and reference series on one time axis; a near-constant
// baseline must still render as a continuous line across the window.
//
// With no in-window observation the dataset's last known value anchors
// a flat line across the whole window; with exactly one, that point
// anchors it. Returns zero or two values, stamped at the window start
// and end.
func (a *Assembler) Expand(ctx context.Context, ds *model.Dataset, q *query.Query) ([]model.Value, error) {
	observations, err := a.deps.Data.GetAll(ctx, ds, q)
	if err != nil {
		return nil, fmt.Errorf("expand reference series %d: %w", ds.ID, err)
	}

	var anchor *model.Observation
	switch len(observations) {
	case 0:
		// global last known value, not window-scoped
		anchor = ds.LastObservation
	case 1:
		anchor = &observations[0]
	default:
		// enough points, nothing to expand
		return nil, nil
	}
	if anchor == nil {
		return nil, nil
	}

	a.deps.Metrics.CountExpansion()
	return a.expandToInterval(ctx, anchor.Value, ds, q), nil
}

// expandToInterval projects one payload onto both window edges.
func (a *Assembler) expandToInterval(ctx context.Context, payload model.ObservationValue, ds *model.Dataset, q *query.Query) []model.Value {
	boundary := func(at model.Observation) *model.Value {
		return a.AssembleValue(ctx, &at, ds, q)
	}
	start := model.Observation{
		DatasetID:         ds.ID,
		SamplingTimeStart: q.Timespan.Start,
		SamplingTimeEnd:   q.Timespan.Start,
		Value:             payload,
	}
	end := model.Observation{
		DatasetID:         ds.ID,
		SamplingTimeStart: q.Timespan.End,
		SamplingTimeEnd:   q.Timespan.End,
		Value:             payload,
	}
	return []model.Value{*boundary(start), *boundary(end)}
}
