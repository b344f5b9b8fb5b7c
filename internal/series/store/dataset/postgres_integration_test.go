//go:build integration

package dataset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/dataset"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *dataset.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = dataset.NewPostgres(s.postgres.Pool, nil)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "dataset_reference", "dataset", "observation")
	s.Require().NoError(err)
}

func i64(v int64) *int64 { return &v }

func candidateAt(procedure int64, first, last time.Time) *model.Dataset {
	return &model.Dataset{
		ValueType:    model.ValueTypeQuantity,
		ProcedureID:  i64(procedure),
		FirstValueAt: &first,
		LastValueAt:  &last,
		Published:    true,
	}
}

func (s *PostgresStoreSuite) TestGetOrInsertCreates() {
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	ds, outcome, err := s.store.GetOrInsert(ctx, candidateAt(1, first, last))
	s.Require().NoError(err)
	s.Equal(dataset.OutcomeCreated, outcome)
	s.NotZero(ds.ID)

	got, err := s.store.Get(ctx, ds.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().NotNil(got.FirstValueAt)
	s.True(got.FirstValueAt.Equal(first))
}

func (s *PostgresStoreSuite) TestGetOrInsertMergesMonotonically() {
	ctx := context.Background()
	first := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	created, _, err := s.store.GetOrInsert(ctx, candidateAt(1, first, last))
	s.Require().NoError(err)

	// narrower range is a no-op
	_, outcome, err := s.store.GetOrInsert(ctx,
		candidateAt(1, first.AddDate(0, 1, 0), last.AddDate(0, -1, 0)))
	s.Require().NoError(err)
	s.Equal(dataset.OutcomeUnchanged, outcome)

	// wider range extends both ends
	wider, outcome, err := s.store.GetOrInsert(ctx,
		candidateAt(1, first.AddDate(0, -1, 0), last.AddDate(0, 1, 0)))
	s.Require().NoError(err)
	s.Equal(dataset.OutcomeUpdated, outcome)
	s.Equal(created.ID, wider.ID)
	s.True(wider.FirstValueAt.Equal(first.AddDate(0, -1, 0)))
	s.True(wider.LastValueAt.Equal(last.AddDate(0, 1, 0)))
}

// Concurrent candidates racing on the same identity must serialize on
// the row lock: one row, final range spanning every contribution.
func (s *PostgresStoreSuite) TestGetOrInsertConcurrent() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seeded, _, err := s.store.GetOrInsert(ctx, candidateAt(1, base, base))
	s.Require().NoError(err)

	const workers = 16
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := base.Add(time.Duration(i) * time.Hour)
			_, _, err := s.store.GetOrInsert(ctx, candidateAt(1, at, at))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	got, err := s.store.Get(ctx, seeded.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.True(got.FirstValueAt.Equal(base))
	s.True(got.LastValueAt.Equal(base.Add(workers * time.Hour)))
}

// Racing creators for an identity tuple with no existing row must
// serialize on the identity lock: exactly one row comes out.
func (s *PostgresStoreSuite) TestGetOrInsertConcurrentCreate() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	const workers = 16
	var wg sync.WaitGroup
	ids := make([]int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := base.Add(time.Duration(i) * time.Hour)
			ds, _, err := s.store.GetOrInsert(ctx, candidateAt(9, at, at))
			s.NoError(err)
			if ds != nil {
				ids[i] = ds.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		s.Equal(ids[0], id, "all workers must resolve to one row")
	}

	var count int
	err := s.postgres.Pool.QueryRow(ctx,
		"SELECT count(*) FROM dataset WHERE procedure_id = 9").Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestGetMissingDataset() {
	got, err := s.store.Get(context.Background(), 404)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *PostgresStoreSuite) TestReferenceIDsAreOrdered() {
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	primary, _, err := s.store.GetOrInsert(ctx, candidateAt(1, at, at))
	s.Require().NoError(err)
	refA, _, err := s.store.GetOrInsert(ctx, candidateAt(2, at, at))
	s.Require().NoError(err)
	refB, _, err := s.store.GetOrInsert(ctx, candidateAt(3, at, at))
	s.Require().NoError(err)

	_, err = s.postgres.Pool.Exec(ctx,
		"INSERT INTO dataset_reference (dataset_id, reference_dataset_id, sort_order) VALUES ($1, $2, 1), ($1, $3, 0)",
		primary.ID, refA.ID, refB.ID)
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, primary.ID)
	s.Require().NoError(err)
	s.Equal([]int64{refB.ID, refA.ID}, got.ReferenceDatasetIDs)
}
