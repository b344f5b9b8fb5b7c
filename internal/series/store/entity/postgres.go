package entity

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

// PostgresStore resolves reference entities from PostgreSQL. All kinds
// share one table layout; the kind column discriminates.
type PostgresStore struct {
	pool *pgxpool.Pool
	sq   sq.StatementBuilderType
}

// NewPostgres constructs a PostgreSQL-backed entity store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		sq:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *PostgresStore) Get(ctx context.Context, kind model.EntityKind, id int64) (*model.Entity, error) {
	sqlText, args, err := s.sq.Select(
		"id", "kind", "identifier", "name", "translations",
		"reference", "no_data_values",
	).
		From("entity").
		Where(sq.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entity query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
		}
		return nil, NotFound(kind, id)
	}

	var e model.Entity
	err = rows.Scan(&e.ID, &e.Kind, &e.Identifier, &e.Name, &e.Translations,
		&e.Reference, &e.NoDataValues)
	if err != nil {
		return nil, fmt.Errorf("scan %s %d: %w", kind, id, err)
	}
	return &e, nil
}
