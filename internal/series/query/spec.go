package query

import (
	"strconv"

	sq "github.com/Masterminds/squirrel"

	pkgerrors "github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/errors"
)

// Column names shared by the predicate builders and the Postgres
// stores.
const (
	ColDeleted           = "deleted"
	ColParent            = "parent"
	ColDatasetID         = "dataset_id"
	ColSamplingTimeStart = "sampling_time_start"
	ColSamplingTimeEnd   = "sampling_time_end"
	ColResultTime        = "result_time"

	ColProcedureID  = "procedure_id"
	ColPhenomenonID = "phenomenon_id"
	ColFeatureID    = "feature_id"
	ColPlatformID   = "platform_id"
	ColOfferingID   = "offering_id"
	ColCategoryID   = "category_id"
	ColServiceID    = "service_id"
)

// CombineAnd conjoins the non-nil predicates. An empty list yields a
// match-all predicate. Predicates built independently stay associative
// under this combination.
func CombineAnd(specs ...sq.Sqlizer) sq.Sqlizer {
	conj := sq.And{}
	for _, spec := range specs {
		if spec != nil {
			conj = append(conj, spec)
		}
	}
	if len(conj) == 0 {
		return alwaysTrue{}
	}
	return conj
}

type alwaysTrue struct{}

func (alwaysTrue) ToSql() (string, []any, error) {
	return "TRUE", nil, nil
}

// FilterData builds the default observation predicate for a query:
// not soft-deleted, parent flag matching the request, within or
// touching the requested timespan, plus spatial, free-text and
// explicit result-time restrictions when present.
func (q *Query) FilterData() sq.Sqlizer {
	specs := []sq.Sqlizer{
		sq.Eq{ColDeleted: false},
		sq.Eq{ColParent: q.ComplexParent},
	}
	if !q.Timespan.IsZero() {
		// Overlap test: the sampling interval touches [start, end].
		specs = append(specs,
			sq.GtOrEq{ColSamplingTimeEnd: q.Timespan.Start},
			sq.LtOrEq{ColSamplingTimeStart: q.Timespan.End},
		)
	}
	if q.SpatialFilter != nil {
		specs = append(specs, q.SpatialFilter)
	}
	if q.FreeText != "" {
		specs = append(specs, sq.Expr(
			"dataset_id IN (SELECT id FROM dataset WHERE identifier ILIKE ?)",
			"%"+q.FreeText+"%"))
	}
	if times := q.ExplicitResultTimes(); len(times) > 0 {
		specs = append(specs, sq.Eq{ColResultTime: times})
	}
	return CombineAnd(specs...)
}

// FilterDataUnbounded is FilterData without the timespan restriction.
// Boundary and exact-timestamp lookups reach outside the requested
// window on purpose.
func (q *Query) FilterDataUnbounded() sq.Sqlizer {
	specs := []sq.Sqlizer{
		sq.Eq{ColDeleted: false},
		sq.Eq{ColParent: q.ComplexParent},
	}
	if q.SpatialFilter != nil {
		specs = append(specs, q.SpatialFilter)
	}
	return CombineAnd(specs...)
}

// MatchDataset restricts observations to one dataset.
func MatchDataset(datasetID int64) sq.Sqlizer {
	return sq.Eq{ColDatasetID: datasetID}
}

// MatchProcedures builds a dataset predicate for a procedure id given
// as its external string form. Fails with an invalid-filter error when
// the id does not parse.
func MatchProcedures(id string) (sq.Sqlizer, error) {
	return matchEntity(ColProcedureID, id)
}

// MatchPhenomena builds a dataset predicate for a phenomenon id.
func MatchPhenomena(id string) (sq.Sqlizer, error) {
	return matchEntity(ColPhenomenonID, id)
}

// MatchFeatures builds a dataset predicate for a feature id.
func MatchFeatures(id string) (sq.Sqlizer, error) {
	return matchEntity(ColFeatureID, id)
}

// MatchPlatforms builds a dataset predicate for a platform id.
func MatchPlatforms(id string) (sq.Sqlizer, error) {
	return matchEntity(ColPlatformID, id)
}

// MatchOfferings builds a dataset predicate for an offering id.
func MatchOfferings(id string) (sq.Sqlizer, error) {
	return matchEntity(ColOfferingID, id)
}

// MatchCategories builds a dataset predicate for a category id.
func MatchCategories(id string) (sq.Sqlizer, error) {
	return matchEntity(ColCategoryID, id)
}

// MatchServices builds a dataset predicate for a service id.
func MatchServices(id string) (sq.Sqlizer, error) {
	return matchEntity(ColServiceID, id)
}

func matchEntity(column, id string) (sq.Sqlizer, error) {
	key, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return sq.Eq{column: key}, nil
}

// ParseID parses an external id into its store key form.
func ParseID(id string) (int64, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeInvalidFilter, "invalid id %q", id)
	}
	return key, nil
}

// FormatID renders a store key in its external string form.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
