package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
)

const (
	datasetTable   = "dataset"
	referenceTable = "dataset_reference"
)

var datasetColumns = []string{
	"id", "identifier", "value_type", "observation_type",
	"procedure_id", "phenomenon_id", "feature_id", "platform_id",
	"offering_id", "category_id", "service_id",
	"first_value_at", "last_value_at",
	"first_observation_id", "last_observation_id",
	"published", "deleted",
}

// PostgresStore persists datasets in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	sq     sq.StatementBuilderType
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed dataset store.
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

func (s *PostgresStore) Get(ctx context.Context, id int64) (*model.Dataset, error) {
	ds, err := s.getBy(ctx, s.pool, sq.Eq{"id": id}, false)
	if err != nil {
		return nil, fmt.Errorf("get dataset %d: %w", id, err)
	}
	return ds, nil
}

// GetOrInsert runs the read-check-write merge inside one transaction.
// The identity lookup locks the matched row so concurrent candidates
// racing on the same tuple serialize instead of losing updates; an
// advisory lock on the identity key covers the case where no row
// exists yet, so racing creators cannot both insert. The transaction
// spans exactly this sequence, nothing wider.
func (s *PostgresStore) GetOrInsert(ctx context.Context, candidate *model.Dataset) (*model.Dataset, Outcome, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("begin dataset merge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// released automatically at commit/rollback
	_, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", identityKey(candidate))
	if err != nil {
		return nil, "", fmt.Errorf("lock dataset identity: %w", err)
	}

	existing, err := s.getBy(ctx, tx, identitySpec(candidate), true)
	if err != nil {
		return nil, "", fmt.Errorf("find dataset by identity: %w", err)
	}

	var result *model.Dataset
	outcome := OutcomeUnchanged
	if existing == nil {
		result, err = s.insert(ctx, tx, candidate)
		if err != nil {
			return nil, "", err
		}
		outcome = OutcomeCreated
		s.logger.InfoContext(ctx, "dataset created", "dataset_id", result.ID)
	} else {
		result = existing
		if MergeRange(result, candidate) {
			if err := s.updateRange(ctx, tx, result); err != nil {
				return nil, "", err
			}
			outcome = OutcomeUpdated
			s.logger.InfoContext(ctx, "dataset range merged",
				"dataset_id", result.ID,
				"first_value_at", result.FirstValueAt,
				"last_value_at", result.LastValueAt)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit dataset merge tx: %w", err)
	}
	return result, outcome, nil
}

// identityKey renders the candidate's identity tuple as a stable
// string for the advisory lock. Absent components render as wildcards
// so the key stays positional.
func identityKey(candidate *model.Dataset) string {
	part := func(id *int64) string {
		if id == nil {
			return "*"
		}
		return strconv.FormatInt(*id, 10)
	}
	return "dataset:" + strings.Join([]string{
		part(candidate.ProcedureID), part(candidate.PhenomenonID),
		part(candidate.FeatureID), part(candidate.PlatformID),
		part(candidate.OfferingID), part(candidate.CategoryID),
		part(candidate.ServiceID),
	}, "/")
}

// identitySpec AND-combines the candidate's present identity
// components through the query package's entity predicates; absent
// components stay unconstrained.
func identitySpec(candidate *model.Dataset) sq.Sqlizer {
	component := func(match func(string) (sq.Sqlizer, error), id *int64) sq.Sqlizer {
		if id == nil {
			return nil
		}
		// ids formatted from int64 always parse back
		spec, err := match(query.FormatID(*id))
		if err != nil {
			return nil
		}
		return spec
	}
	return query.CombineAnd(
		component(query.MatchProcedures, candidate.ProcedureID),
		component(query.MatchPhenomena, candidate.PhenomenonID),
		component(query.MatchFeatures, candidate.FeatureID),
		component(query.MatchPlatforms, candidate.PlatformID),
		component(query.MatchOfferings, candidate.OfferingID),
		component(query.MatchCategories, candidate.CategoryID),
		component(query.MatchServices, candidate.ServiceID),
	)
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so reads
// can run inside or outside the merge transaction.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) getBy(ctx context.Context, q rowQuerier, spec sq.Sqlizer, forUpdate bool) (*model.Dataset, error) {
	builder := s.sq.Select(datasetColumns...).From(datasetTable).Where(spec).Limit(1)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	sqlText, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dataset query: %w", err)
	}

	rows, err := q.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		ds                 model.Dataset
		firstObservationID *int64
		lastObservationID  *int64
	)
	err = rows.Scan(
		&ds.ID, &ds.Identifier, &ds.ValueType, &ds.ObservationType,
		&ds.ProcedureID, &ds.PhenomenonID, &ds.FeatureID, &ds.PlatformID,
		&ds.OfferingID, &ds.CategoryID, &ds.ServiceID,
		&ds.FirstValueAt, &ds.LastValueAt,
		&firstObservationID, &lastObservationID,
		&ds.Published, &ds.Deleted,
	)
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ds.ReferenceDatasetIDs, err = s.referenceIDs(ctx, q, ds.ID); err != nil {
		return nil, err
	}
	if ds.FirstObservation, err = s.observationByID(ctx, q, firstObservationID); err != nil {
		return nil, err
	}
	if ds.LastObservation, err = s.observationByID(ctx, q, lastObservationID); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *PostgresStore) referenceIDs(ctx context.Context, q rowQuerier, datasetID int64) ([]int64, error) {
	sqlText, args, err := s.sq.Select("reference_dataset_id").
		From(referenceTable).
		Where(sq.Eq{"dataset_id": datasetID}).
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reference query: %w", err)
	}
	rows, err := q.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("load reference datasets: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reference id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) observationByID(ctx context.Context, q rowQuerier, id *int64) (*model.Observation, error) {
	if id == nil {
		return nil, nil
	}
	sqlText, args, err := s.sq.Select(
		"id", "dataset_id", "sampling_time_start", "sampling_time_end",
		"result_time", "deleted", "parent", "geometry",
		"value_quantity", "value_text", "value_count", "value_record",
	).From("observation").Where(sq.Eq{"id": *id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build observation query: %w", err)
	}
	rows, err := q.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("load cached observation: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		obs      model.Observation
		quantity *decimal.Decimal
		text     *string
		count    *int64
		record   []byte
	)
	err = rows.Scan(
		&obs.ID, &obs.DatasetID, &obs.SamplingTimeStart, &obs.SamplingTimeEnd,
		&obs.ResultTime, &obs.Deleted, &obs.Parent, &obs.Geometry,
		&quantity, &text, &count, &record,
	)
	if err != nil {
		return nil, fmt.Errorf("scan cached observation: %w", err)
	}
	obs.Value = model.ObservationValue{Quantity: quantity, Text: text, Count: count}
	if len(record) > 0 {
		if err := json.Unmarshal(record, &obs.Value.Record); err != nil {
			return nil, fmt.Errorf("decode cached record payload: %w", err)
		}
	}
	return &obs, nil
}

func (s *PostgresStore) insert(ctx context.Context, tx pgx.Tx, candidate *model.Dataset) (*model.Dataset, error) {
	sqlText, args, err := s.sq.Insert(datasetTable).
		Columns(
			"identifier", "value_type", "observation_type",
			"procedure_id", "phenomenon_id", "feature_id", "platform_id",
			"offering_id", "category_id", "service_id",
			"first_value_at", "last_value_at",
			"first_observation_id", "last_observation_id",
			"published", "deleted",
		).
		Values(
			candidate.Identifier, candidate.ValueType, candidate.ObservationType,
			candidate.ProcedureID, candidate.PhenomenonID, candidate.FeatureID, candidate.PlatformID,
			candidate.OfferingID, candidate.CategoryID, candidate.ServiceID,
			candidate.FirstValueAt, candidate.LastValueAt,
			observationID(candidate.FirstObservation), observationID(candidate.LastObservation),
			candidate.Published, candidate.Deleted,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dataset insert: %w", err)
	}

	inserted := *candidate
	if err := tx.QueryRow(ctx, sqlText, args...).Scan(&inserted.ID); err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}
	return &inserted, nil
}

func (s *PostgresStore) updateRange(ctx context.Context, tx pgx.Tx, ds *model.Dataset) error {
	sqlText, args, err := s.sq.Update(datasetTable).
		Set("first_value_at", ds.FirstValueAt).
		Set("last_value_at", ds.LastValueAt).
		Set("first_observation_id", observationID(ds.FirstObservation)).
		Set("last_observation_id", observationID(ds.LastObservation)).
		Where(sq.Eq{"id": ds.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build dataset update: %w", err)
	}
	if _, err := tx.Exec(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("update dataset range: %w", err)
	}
	return nil
}

func observationID(obs *model.Observation) *int64 {
	if obs == nil {
		return nil
	}
	return &obs.ID
}
