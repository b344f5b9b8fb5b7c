package assembler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

func TestExpand(t *testing.T) {
	ctx := context.Background()
	window := func() *query.Query {
		return query.Defaults().WithTimespan(ts("2024-03-01T00:00:00Z"), ts("2024-03-02T00:00:00Z"))
	}

	t.Run("one in-window point anchors a flat line", func(t *testing.T) {
		f := newFixture(t)
		ds := f.quantityDataset(t)
		a, err := f.factory.ForDataset(ds)
		require.NoError(t, err)

		f.addQuantity(ds.ID, "2024-03-01T09:00:00Z", 4.2)

		values, err := a.Expand(ctx, ds, window())
		require.NoError(t, err)
		require.Len(t, values, 2)
		assert.True(t, values[0].Timestamp.Equal(ts("2024-03-01T00:00:00Z")))
		assert.True(t, values[1].Timestamp.Equal(ts("2024-03-02T00:00:00Z")))
		for _, v := range values {
			require.IsType(t, decimal.Decimal{}, v.Payload)
			assert.True(t, v.Payload.(decimal.Decimal).Equal(decimal.NewFromFloat(4.2)))
		}
	})

	t.Run("empty window falls back to the last known value", func(t *testing.T) {
		f := newFixture(t)
		last := ts("2024-01-15T00:00:00Z")
		ds := f.datasets.Put(&model.Dataset{
			ValueType:   model.ValueTypeQuantity,
			Published:   true,
			LastValueAt: &last,
			LastObservation: &model.Observation{
				SamplingTimeEnd: last,
				Value:           model.QuantityValue(decimal.NewFromInt(7)),
			},
		})
		a, err := f.factory.ForDataset(ds)
		require.NoError(t, err)

		values, err := a.Expand(ctx, ds, window())
		require.NoError(t, err)
		require.Len(t, values, 2)
		assert.True(t, values[0].Timestamp.Equal(ts("2024-03-01T00:00:00Z")))
		assert.True(t, values[1].Timestamp.Equal(ts("2024-03-02T00:00:00Z")))
		for _, v := range values {
			require.IsType(t, decimal.Decimal{}, v.Payload)
			assert.True(t, v.Payload.(decimal.Decimal).Equal(decimal.NewFromInt(7)))
		}
	})

	t.Run("no data at all yields nothing", func(t *testing.T) {
		f := newFixture(t)
		ds := f.quantityDataset(t)
		a, err := f.factory.ForDataset(ds)
		require.NoError(t, err)

		values, err := a.Expand(ctx, ds, window())
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("two or more points need no expansion", func(t *testing.T) {
		f := newFixture(t)
		ds := f.quantityDataset(t)
		a, err := f.factory.ForDataset(ds)
		require.NoError(t, err)

		f.addQuantity(ds.ID, "2024-03-01T06:00:00Z", 1)
		f.addQuantity(ds.ID, "2024-03-01T18:00:00Z", 2)

		values, err := a.Expand(ctx, ds, window())
		require.NoError(t, err)
		assert.Empty(t, values)
	})
}
