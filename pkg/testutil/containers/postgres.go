//go:build integration

// Package containers starts throwaway backing services for integration
// tests. Containers live for the duration of one suite; Ryuk reaps
// anything left behind.
package containers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// seriesSchema is the minimal schema the series stores read and write.
const seriesSchema = `
CREATE TABLE IF NOT EXISTS entity (
    id             BIGINT NOT NULL,
    kind           TEXT   NOT NULL,
    identifier     TEXT   NOT NULL DEFAULT '',
    name           TEXT   NOT NULL DEFAULT '',
    translations   JSONB,
    reference      BOOLEAN NOT NULL DEFAULT FALSE,
    no_data_values TEXT[],
    PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS observation (
    id                  BIGSERIAL PRIMARY KEY,
    dataset_id          BIGINT      NOT NULL,
    sampling_time_start TIMESTAMPTZ NOT NULL,
    sampling_time_end   TIMESTAMPTZ NOT NULL,
    result_time         TIMESTAMPTZ NOT NULL,
    deleted             BOOLEAN     NOT NULL DEFAULT FALSE,
    parent              BOOLEAN     NOT NULL DEFAULT FALSE,
    geometry            JSONB,
    value_quantity      NUMERIC,
    value_text          TEXT,
    value_count         BIGINT,
    value_record        JSONB
);

CREATE INDEX IF NOT EXISTS idx_observation_series_time
    ON observation (dataset_id, sampling_time_end);

CREATE TABLE IF NOT EXISTS dataset (
    id                   BIGSERIAL PRIMARY KEY,
    identifier           TEXT NOT NULL DEFAULT '',
    value_type           TEXT NOT NULL,
    observation_type     TEXT NOT NULL DEFAULT 'simple',
    procedure_id         BIGINT,
    phenomenon_id        BIGINT,
    feature_id           BIGINT,
    platform_id          BIGINT,
    offering_id          BIGINT,
    category_id          BIGINT,
    service_id           BIGINT,
    first_value_at       TIMESTAMPTZ,
    last_value_at        TIMESTAMPTZ,
    first_observation_id BIGINT REFERENCES observation (id),
    last_observation_id  BIGINT REFERENCES observation (id),
    published            BOOLEAN NOT NULL DEFAULT FALSE,
    deleted              BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS dataset_reference (
    dataset_id           BIGINT NOT NULL REFERENCES dataset (id),
    reference_dataset_id BIGINT NOT NULL REFERENCES dataset (id),
    sort_order           INT    NOT NULL DEFAULT 0,
    PRIMARY KEY (dataset_id, reference_dataset_id)
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with a
// connection pool and the series schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a PostgreSQL container and applies the
// series schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("series"),
		tcpostgres.WithUsername("series"),
		tcpostgres.WithPassword("series"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	poolCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	pool, err := pgxpool.New(poolCtx, dsn)
	if err != nil {
		t.Fatalf("failed to open postgres pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, seriesSchema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, Pool: pool}
}

// TruncateTables empties the given tables. Use between tests to ensure
// isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.Pool.Exec(ctx,
		fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", ")))
	return err
}
