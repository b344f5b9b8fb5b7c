package query

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/errors"
)

func TestCombineAnd(t *testing.T) {
	t.Run("empty yields match-all", func(t *testing.T) {
		sql, args, err := CombineAnd().ToSql()
		require.NoError(t, err)
		assert.Equal(t, "TRUE", sql)
		assert.Empty(t, args)
	})

	t.Run("nil predicates are skipped", func(t *testing.T) {
		sql, args, err := CombineAnd(nil, sq.Eq{ColDeleted: false}, nil).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "(deleted = ?)", sql)
		assert.Equal(t, []any{false}, args)
	})

	t.Run("conjoins independent predicates", func(t *testing.T) {
		sql, args, err := CombineAnd(
			sq.Eq{ColDeleted: false},
			sq.Eq{ColDatasetID: int64(7)},
		).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "(deleted = ? AND dataset_id = ?)", sql)
		assert.Len(t, args, 2)
	})
}

func TestFilterData(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	q := Defaults().WithTimespan(start, end)
	sql, args, err := q.FilterData().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "deleted = ?")
	assert.Contains(t, sql, "parent = ?")
	assert.Contains(t, sql, "sampling_time_end >= ?")
	assert.Contains(t, sql, "sampling_time_start <= ?")
	assert.Contains(t, args, start)
	assert.Contains(t, args, end)
}

func TestFilterDataFreeText(t *testing.T) {
	q := Defaults()
	q.FreeText = "rhine"

	sql, args, err := q.FilterData().ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "identifier ILIKE ?")
	assert.Contains(t, args, "%rhine%")

	t.Run("absent term adds no predicate", func(t *testing.T) {
		sql, _, err := Defaults().FilterData().ToSql()
		require.NoError(t, err)
		assert.NotContains(t, sql, "ILIKE")
	})
}

func TestFilterDataUnboundedOmitsTimespan(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	q := Defaults().WithTimespan(start, end)
	sql, _, err := q.FilterDataUnbounded().ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sql, "sampling_time_end >=")
	assert.NotContains(t, sql, "sampling_time_start <=")
	assert.Contains(t, sql, "deleted = ?")
}

func TestMatchEntityPredicates(t *testing.T) {
	tests := []struct {
		name    string
		build   func(string) (sq.Sqlizer, error)
		wantSQL string
	}{
		{"procedure", MatchProcedures, "procedure_id = ?"},
		{"phenomenon", MatchPhenomena, "phenomenon_id = ?"},
		{"feature", MatchFeatures, "feature_id = ?"},
		{"platform", MatchPlatforms, "platform_id = ?"},
		{"offering", MatchOfferings, "offering_id = ?"},
		{"category", MatchCategories, "category_id = ?"},
		{"service", MatchServices, "service_id = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.build("42")
			require.NoError(t, err)

			sql, args, err := spec.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, []any{int64(42)}, args)
		})
	}

	t.Run("malformed id rejected as invalid filter", func(t *testing.T) {
		_, err := MatchProcedures("not-a-number")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeInvalidFilter, pkgerrors.CodeOf(err))
	})
}

func TestParseFormatIDRoundTrip(t *testing.T) {
	id, err := ParseID("314")
	require.NoError(t, err)
	assert.Equal(t, int64(314), id)
	assert.Equal(t, "314", FormatID(id))
}
