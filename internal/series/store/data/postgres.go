package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

const observationTable = "observation"

var observationColumns = []string{
	"id", "dataset_id", "sampling_time_start", "sampling_time_end",
	"result_time", "deleted", "parent", "geometry",
	"value_quantity", "value_text", "value_count", "value_record",
}

// PostgresStore reads observations from PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	sq     sq.StatementBuilderType
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed observation store.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		pool:   pool,
		sq:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

func (s *PostgresStore) GetAll(ctx context.Context, dataset *model.Dataset, q *query.Query) ([]model.Observation, error) {
	s.logger.DebugContext(ctx, "get all observations", "dataset_id", dataset.ID)

	builder := s.sq.Select(observationColumns...).
		From(observationTable).
		Where(query.CombineAnd(q.FilterData(), query.MatchDataset(dataset.ID))).
		OrderBy(query.ColSamplingTimeEnd + " ASC")
	if q.Limit > 0 {
		builder = builder.Limit(q.Limit).Offset(q.Offset)
	}

	rows, err := s.query(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("get all observations: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) ClosestBefore(ctx context.Context, dataset *model.Dataset, lowerBound time.Time, q *query.Query) (*model.Observation, error) {
	// Ordering by result time second makes the latest assertion win
	// when the closest sampling instant carries several; equivalent to
	// the grouped lookup for a single-row result.
	builder := s.sq.Select(observationColumns...).
		From(observationTable).
		Where(query.CombineAnd(
			q.FilterDataUnbounded(),
			query.MatchDataset(dataset.ID),
			sq.Lt{query.ColSamplingTimeStart: lowerBound},
		)).
		OrderBy(query.ColSamplingTimeStart+" DESC", query.ColResultTime+" DESC").
		Limit(1)

	obs, err := s.queryOne(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("get closest observation before %s: %w", lowerBound, err)
	}
	return obs, nil
}

func (s *PostgresStore) ClosestAfter(ctx context.Context, dataset *model.Dataset, upperBound time.Time, q *query.Query) (*model.Observation, error) {
	builder := s.sq.Select(observationColumns...).
		From(observationTable).
		Where(query.CombineAnd(
			q.FilterDataUnbounded(),
			query.MatchDataset(dataset.ID),
			sq.Gt{query.ColSamplingTimeEnd: upperBound},
		)).
		OrderBy(query.ColSamplingTimeEnd+" ASC", query.ColResultTime+" DESC").
		Limit(1)

	obs, err := s.queryOne(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("get closest observation after %s: %w", upperBound, err)
	}
	return obs, nil
}

func (s *PostgresStore) AtResultTime(ctx context.Context, dataset *model.Dataset, timestamp time.Time, column TimeColumn, q *query.Query) (*model.Observation, error) {
	s.logger.DebugContext(ctx, "get observation at timestamp",
		"dataset_id", dataset.ID, "timestamp", timestamp, "column", string(column))

	specs := []sq.Sqlizer{
		q.FilterDataUnbounded(),
		query.MatchDataset(dataset.ID),
		sq.Eq{string(column): timestamp},
	}

	switch {
	case q.AllResultTimes():
		// no result-time restriction
	case len(q.ExplicitResultTimes()) > 0:
		specs = append(specs, sq.Eq{query.ColResultTime: q.ExplicitResultTimes()})
	default:
		// Default case: resolve ambiguity in two explicit steps. The
		// aggregation yields the winning result time for the
		// (timestamp, dataset) group; the outer read then filters on
		// that winner instead of nesting a dialect-specific subquery.
		winner, found, err := s.latestResultTime(ctx, dataset.ID, timestamp, column)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		specs = append(specs, sq.Eq{query.ColResultTime: winner})
	}

	builder := s.sq.Select(observationColumns...).
		From(observationTable).
		Where(query.CombineAnd(specs...)).
		OrderBy(query.ColSamplingTimeEnd + " ASC").
		Limit(1)

	obs, err := s.queryOne(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("get observation at %s: %w", timestamp, err)
	}
	return obs, nil
}

// latestResultTime runs the aggregation step of the result-time
// disambiguation: max(result_time) over the (column value, dataset id)
// group. Kept as its own named operation so the two-step shape stays
// visible.
func (s *PostgresStore) latestResultTime(ctx context.Context, datasetID int64, timestamp time.Time, column TimeColumn) (time.Time, bool, error) {
	builder := s.sq.Select("max(" + query.ColResultTime + ")").
		From(observationTable).
		Where(sq.And{
			sq.Eq{query.ColDatasetID: datasetID},
			sq.Eq{string(column): timestamp},
			sq.Eq{query.ColDeleted: false},
		}).
		GroupBy(string(column), query.ColDatasetID)

	sqlText, args, err := builder.ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build result-time aggregation: %w", err)
	}

	var winner time.Time
	err = s.pool.QueryRow(ctx, sqlText, args...).Scan(&winner)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("aggregate result times: %w", err)
	}
	return winner, true, nil
}

func (s *PostgresStore) query(ctx context.Context, builder sq.SelectBuilder) ([]model.Observation, error) {
	sqlText, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []model.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, *obs)
	}
	return observations, rows.Err()
}

func (s *PostgresStore) queryOne(ctx context.Context, builder sq.SelectBuilder) (*model.Observation, error) {
	observations, err := s.query(ctx, builder)
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, nil
	}
	return &observations[0], nil
}

func scanObservation(rows pgx.Rows) (*model.Observation, error) {
	var (
		obs      model.Observation
		quantity *decimal.Decimal
		text     *string
		count    *int64
		record   []byte
	)
	err := rows.Scan(
		&obs.ID, &obs.DatasetID, &obs.SamplingTimeStart, &obs.SamplingTimeEnd,
		&obs.ResultTime, &obs.Deleted, &obs.Parent, &obs.Geometry,
		&quantity, &text, &count, &record,
	)
	if err != nil {
		return nil, fmt.Errorf("scan observation: %w", err)
	}
	obs.Value = model.ObservationValue{Quantity: quantity, Text: text, Count: count}
	if len(record) > 0 {
		if err := json.Unmarshal(record, &obs.Value.Record); err != nil {
			return nil, fmt.Errorf("decode record payload: %w", err)
		}
	}
	return &obs, nil
}
