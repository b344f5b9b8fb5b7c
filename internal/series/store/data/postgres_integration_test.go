//go:build integration

package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/data"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *data.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = data.NewPostgres(s.postgres.Pool, nil)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "observation")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seed(datasetID int64, sampled, asserted time.Time, v float64, deleted bool) {
	_, err := s.postgres.Pool.Exec(context.Background(), `
		INSERT INTO observation
			(dataset_id, sampling_time_start, sampling_time_end, result_time, deleted, value_quantity)
		VALUES ($1, $2, $2, $3, $4, $5)`,
		datasetID, sampled, asserted, deleted, decimal.NewFromFloat(v))
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestGetAll() {
	ctx := context.Background()
	ds := &model.Dataset{ID: 1}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s.seed(1, base.Add(12*time.Hour), base.Add(12*time.Hour), 2, false)
	s.seed(1, base.Add(6*time.Hour), base.Add(6*time.Hour), 1, false)
	s.seed(1, base.Add(9*time.Hour), base.Add(9*time.Hour), 99, true)
	s.seed(2, base.Add(6*time.Hour), base.Add(6*time.Hour), 3, false)

	q := query.Defaults().WithTimespan(base, base.AddDate(0, 0, 1))
	got, err := s.store.GetAll(ctx, ds, q)
	s.Require().NoError(err)
	s.Require().Len(got, 2, "soft-deleted and foreign rows are excluded")
	s.True(got[0].SamplingTimeEnd.Before(got[1].SamplingTimeEnd))
}

func (s *PostgresStoreSuite) TestClosestBeforeAndAfter() {
	ctx := context.Background()
	ds := &model.Dataset{ID: 1}
	windowStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 1)

	s.seed(1, windowStart.Add(-48*time.Hour), windowStart, 1, false)
	s.seed(1, windowStart.Add(-2*time.Hour), windowStart, 2, false)
	s.seed(1, windowEnd.Add(3*time.Hour), windowEnd, 3, false)
	s.seed(1, windowEnd.Add(30*time.Hour), windowEnd, 4, false)

	q := query.Defaults()

	before, err := s.store.ClosestBefore(ctx, ds, windowStart, q)
	s.Require().NoError(err)
	s.Require().NotNil(before)
	s.True(before.SamplingTimeStart.Equal(windowStart.Add(-2 * time.Hour)))

	after, err := s.store.ClosestAfter(ctx, ds, windowEnd, q)
	s.Require().NoError(err)
	s.Require().NotNil(after)
	s.True(after.SamplingTimeEnd.Equal(windowEnd.Add(3 * time.Hour)))
}

func (s *PostgresStoreSuite) TestAtResultTimeDisambiguation() {
	ctx := context.Background()
	ds := &model.Dataset{ID: 1}
	sampled := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	s.seed(1, sampled, sampled.Add(1*time.Hour), 1, false)
	s.seed(1, sampled, sampled.Add(25*time.Hour), 2, false)

	got, err := s.store.AtResultTime(ctx, ds, sampled, data.ColumnSamplingEnd, query.Defaults())
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().NotNil(got.Value.Quantity)
	s.True(got.Value.Quantity.Equal(decimal.NewFromInt(2)), "most recent assertion wins")

	q := query.Defaults()
	q.ResultTimeMode = query.ResultTimeExplicit
	q.ResultTimes = []time.Time{sampled.Add(1 * time.Hour)}
	got, err = s.store.AtResultTime(ctx, ds, sampled, data.ColumnSamplingEnd, q)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.True(got.Value.Quantity.Equal(decimal.NewFromInt(1)))
}

func (s *PostgresStoreSuite) TestAtResultTimeMissing() {
	got, err := s.store.AtResultTime(context.Background(), &model.Dataset{ID: 1},
		time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), data.ColumnSamplingEnd, query.Defaults())
	s.Require().NoError(err)
	s.Nil(got)
}
