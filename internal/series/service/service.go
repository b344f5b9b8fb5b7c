// Package service exposes the query-and-assembly engine to the outer
// API layer: condensed and expanded dataset outputs, bulk data
// retrieval, and the ingestion-facing merge-or-create entry point.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/assembler"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/metrics"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/dataset"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/entity"
	pkgerrors "github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/errors"
)

// defaultBulkConcurrency bounds parallel dataset assembly in GetData.
const defaultBulkConcurrency = 8

// Service is the outward-facing surface of the series engine.
type Service struct {
	datasets dataset.Store
	factory  *assembler.Factory
	entities entity.Store
	labels   *entity.LabelResolver

	bulkConcurrency int
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches series metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBulkConcurrency bounds parallel assembly in GetData.
func WithBulkConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bulkConcurrency = n
		}
	}
}

// New constructs the series service.
func New(datasets dataset.Store, factory *assembler.Factory, entities entity.Store, labels *entity.LabelResolver, opts ...Option) (*Service, error) {
	if datasets == nil {
		return nil, fmt.Errorf("dataset store is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("assembler factory is required")
	}

	svc := &Service{
		datasets:        datasets,
		factory:         factory,
		entities:        entities,
		labels:          labels,
		bulkConcurrency: defaultBulkConcurrency,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AssembleCondensed builds the minimal output of a dataset: identity
// and label, no value material.
func (s *Service) AssembleCondensed(ctx context.Context, datasetID string, q *query.Query) (*model.DatasetOutput, error) {
	ds, err := s.resolveDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return s.condensed(ctx, ds, q), nil
}

// AssembleExpanded builds the metadata-enriched output of a dataset:
// first/last value, reference values and the parameters block. An
// assembler lookup failure degrades the value fields to absent instead
// of failing the request; the output stays condensed-shaped.
func (s *Service) AssembleExpanded(ctx context.Context, datasetID string, q *query.Query) (*model.DatasetOutput, error) {
	ds, err := s.resolveDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	result := s.condensed(ctx, ds, q)
	result.Parameters = s.datasetParameters(ctx, ds, q)

	asm, err := s.factory.ForDataset(ds)
	if err != nil {
		// degrade, not fail: the batch keeps its other datasets
		s.metrics.CountDegraded()
		s.logger.WarnContext(ctx, "no assembler for dataset, degrading expanded output",
			"dataset_id", ds.ID, "value_type", ds.ValueType, "error", err)
		return result, nil
	}

	firstValue := asm.FirstValue(ctx, ds, q)
	lastValue := asm.LastValue(ctx, ds, q)

	refValues, err := asm.ReferenceValues(ctx, ds, q)
	if err != nil {
		return nil, s.classify(ctx, err)
	}

	// A reference series with a single effective observation still
	// presents a valid [first, last] interval.
	if s.isReferenceSeries(ctx, ds) && congruentValues(firstValue, lastValue) {
		lastValue = firstValue
	}

	result.FirstValue = firstValue
	result.LastValue = lastValue
	result.ReferenceValues = refValues
	return result, nil
}

// GetData assembles series data for several datasets at once, keyed by
// dataset id. Datasets yielding no values are omitted. Assembly runs
// request-parallel with bounded concurrency; reads share a consistent
// snapshot and need no locking.
func (s *Service) GetData(ctx context.Context, datasetIDs []string, q *query.Query) (map[string]*model.Data, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveQuery("get_data", time.Since(start).Seconds())
	}()

	var mu sync.Mutex
	collection := make(map[string]*model.Data)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkConcurrency)
	for _, id := range datasetIDs {
		id := id
		g.Go(func() error {
			data, err := s.dataFor(gctx, id, q)
			if err != nil {
				return err
			}
			if data == nil || len(data.Values) == 0 && data.Metadata == nil {
				return nil
			}
			mu.Lock()
			collection[id] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collection, nil
}

func (s *Service) dataFor(ctx context.Context, datasetID string, q *query.Query) (*model.Data, error) {
	ds, err := s.resolveDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	asm, err := s.factory.ForDataset(ds)
	if err != nil {
		return nil, err
	}

	var data *model.Data
	if q.Expanded {
		data, err = asm.AssembleExpandedSeries(ctx, ds, q)
	} else {
		data, err = asm.AssembleSeries(ctx, ds, q)
	}
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	return data, nil
}

// GetOrInsertInstance is the ingestion entry point: merge-or-create a
// dataset from a range candidate.
func (s *Service) GetOrInsertInstance(ctx context.Context, candidate *model.Dataset) (*model.Dataset, error) {
	if candidate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidFilter, "dataset candidate is required")
	}
	if candidate.HasFirstValueAt() && candidate.HasLastValueAt() &&
		candidate.FirstValueAt.After(*candidate.LastValueAt) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidFilter, "first value must not be after last value")
	}

	result, outcome, err := s.datasets.GetOrInsert(ctx, candidate)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	s.metrics.CountMerge(string(outcome))
	return result, nil
}

func (s *Service) resolveDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	id, err := query.ParseID(datasetID)
	if err != nil {
		return nil, err
	}
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	if ds == nil || ds.Deleted {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "dataset with id %q could not be found", datasetID)
	}
	return ds, nil
}

func (s *Service) condensed(ctx context.Context, ds *model.Dataset, q *query.Query) *model.DatasetOutput {
	out := &model.DatasetOutput{
		ID:        query.FormatID(ds.ID),
		Label:     ds.Identifier,
		ValueType: ds.ValueType,
	}
	if ds.PhenomenonID != nil && s.labels != nil {
		if label, err := s.labels.Label(ctx, model.EntityPhenomenon, *ds.PhenomenonID, q.Locale); err == nil {
			out.Label = label
		}
	}
	return out
}

// datasetParameters builds the expanded metadata block from the
// dataset's identity components. Lookup failures leave the slot empty;
// the block is descriptive, not load-bearing.
func (s *Service) datasetParameters(ctx context.Context, ds *model.Dataset, q *query.Query) *model.DatasetParameters {
	lookup := func(kind model.EntityKind, id *int64) *model.EntityOutput {
		if id == nil || s.entities == nil {
			return nil
		}
		e, err := s.entities.Get(ctx, kind, *id)
		if err != nil {
			s.logger.WarnContext(ctx, "parameter lookup failed",
				"dataset_id", ds.ID, "kind", kind, "error", err)
			return nil
		}
		return &model.EntityOutput{ID: query.FormatID(e.ID), Label: e.LabelFor(q.Locale)}
	}
	return &model.DatasetParameters{
		Service:    lookup(model.EntityService, ds.ServiceID),
		Offering:   lookup(model.EntityOffering, ds.OfferingID),
		Procedure:  lookup(model.EntityProcedure, ds.ProcedureID),
		Phenomenon: lookup(model.EntityPhenomenon, ds.PhenomenonID),
		Category:   lookup(model.EntityCategory, ds.CategoryID),
		Platform:   lookup(model.EntityPlatform, ds.PlatformID),
		Feature:    lookup(model.EntityFeature, ds.FeatureID),
	}
}

// isReferenceSeries reports whether the dataset's procedure is flagged
// as a reference (baseline) procedure.
func (s *Service) isReferenceSeries(ctx context.Context, ds *model.Dataset) bool {
	if ds.ProcedureID == nil || s.entities == nil {
		return false
	}
	procedure, err := s.entities.Get(ctx, model.EntityProcedure, *ds.ProcedureID)
	if err != nil {
		return false
	}
	return procedure.Reference
}

// congruentValues reports whether first and last describe the same
// sampling instant (both absent, or equal timestamps).
func congruentValues(first, last *model.Value) bool {
	if first == nil && last == nil {
		return true
	}
	if first == nil || last == nil {
		return false
	}
	return first.Timestamp.Equal(last.Timestamp)
}

// classify maps infrastructure failures onto the service error
// taxonomy: elapsed deadlines surface as deadline errors, caller
// cancellation as canceled, anything else from the store as
// unavailability. Coded errors pass through.
func (s *Service) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var coded *pkgerrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return pkgerrors.Wrap(err, pkgerrors.CodeDeadline, "query aborted: deadline exceeded")
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return pkgerrors.Wrap(err, pkgerrors.CodeCanceled, "query aborted: request canceled")
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "observation store unavailable")
}
