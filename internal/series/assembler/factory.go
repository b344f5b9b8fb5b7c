// Package assembler turns raw observation rows into typed output
// values and assembles whole series with boundary and reference
// metadata. One Assembler variant exists per (observation type, value
// type) pair; the factory maps the pair to its variant through a
// static registration table.
package assembler

import (
	"log/slog"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/metrics"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/nodata"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/data"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/dataset"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/entity"
	pkgerrors "github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/errors"
)

type factoryKey struct {
	observationType model.ObservationType
	valueType       model.ValueType
}

// assemblerTable is the static registration table of known variants.
// New value types register here; no scanning, no reflection.
var assemblerTable = map[factoryKey]payloadMapper{
	{model.ObservationTypeSimple, model.ValueTypeQuantity}: quantityMapper{},
	{model.ObservationTypeSimple, model.ValueTypeText}:     textMapper{},
	{model.ObservationTypeSimple, model.ValueTypeCount}:    countMapper{},
	{model.ObservationTypeSimple, model.ValueTypeRecord}:   recordMapper{},
}

// Deps bundles the collaborators every assembler variant shares.
type Deps struct {
	Data     data.Store
	Datasets dataset.Store
	Entities entity.Store
	Labels   *entity.LabelResolver
	Policy   *nodata.Policy
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Factory creates assembler variants for datasets.
type Factory struct {
	deps Deps
}

// NewFactory constructs a factory over the shared collaborators.
func NewFactory(deps Deps) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Policy == nil {
		deps.Policy = nodata.New()
	}
	return &Factory{deps: deps}
}

// Create returns the assembler for the given type pair. Unknown pairs
// yield a not-found error; callers assembling expanded outputs degrade
// the affected dataset instead of failing the batch.
func (f *Factory) Create(observationType model.ObservationType, valueType model.ValueType) (*Assembler, error) {
	if observationType == "" {
		observationType = model.ObservationTypeSimple
	}
	mapper, ok := assemblerTable[factoryKey{observationType, valueType}]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound,
			"no assembler registered for observation type %q value type %q",
			observationType, valueType)
	}
	return &Assembler{mapper: mapper, deps: f.deps}, nil
}

// ForDataset resolves the assembler variant matching a dataset's tags.
func (f *Factory) ForDataset(ds *model.Dataset) (*Assembler, error) {
	return f.Create(ds.ObservationType, ds.ValueType)
}
