package dataset

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

func tp(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func rangeCandidate(first, last *time.Time) *model.Dataset {
	ds := &model.Dataset{FirstValueAt: first, LastValueAt: last}
	if first != nil {
		ds.FirstObservation = &model.Observation{SamplingTimeEnd: *first}
	}
	if last != nil {
		ds.LastObservation = &model.Observation{SamplingTimeEnd: *last}
	}
	return ds
}

func TestMergeRange(t *testing.T) {
	tests := []struct {
		name        string
		existing    *model.Dataset
		candidate   *model.Dataset
		wantChanged bool
		wantFirst   *time.Time
		wantLast    *time.Time
	}{
		{
			name:        "unset pointers fill in",
			existing:    rangeCandidate(nil, nil),
			candidate:   rangeCandidate(tp("2024-01-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			wantChanged: true,
			wantFirst:   tp("2024-01-01T00:00:00Z"),
			wantLast:    tp("2024-06-01T00:00:00Z"),
		},
		{
			name:        "first moves only strictly earlier",
			existing:    rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			candidate:   rangeCandidate(tp("2024-01-01T00:00:00Z"), nil),
			wantChanged: true,
			wantFirst:   tp("2024-01-01T00:00:00Z"),
			wantLast:    tp("2024-06-01T00:00:00Z"),
		},
		{
			name:        "later first is ignored",
			existing:    rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			candidate:   rangeCandidate(tp("2024-03-01T00:00:00Z"), nil),
			wantChanged: false,
			wantFirst:   tp("2024-02-01T00:00:00Z"),
			wantLast:    tp("2024-06-01T00:00:00Z"),
		},
		{
			name:        "last moves only strictly later",
			existing:    rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			candidate:   rangeCandidate(nil, tp("2024-07-01T00:00:00Z")),
			wantChanged: true,
			wantFirst:   tp("2024-02-01T00:00:00Z"),
			wantLast:    tp("2024-07-01T00:00:00Z"),
		},
		{
			name:        "equal timestamps do not write",
			existing:    rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			candidate:   rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			wantChanged: false,
			wantFirst:   tp("2024-02-01T00:00:00Z"),
			wantLast:    tp("2024-06-01T00:00:00Z"),
		},
		{
			name:        "empty candidate leaves existing untouched",
			existing:    rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z")),
			candidate:   rangeCandidate(nil, nil),
			wantChanged: false,
			wantFirst:   tp("2024-02-01T00:00:00Z"),
			wantLast:    tp("2024-06-01T00:00:00Z"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := MergeRange(tt.existing, tt.candidate)
			assert.Equal(t, tt.wantChanged, changed)
			requireEqualTimePtr(t, tt.wantFirst, tt.existing.FirstValueAt)
			requireEqualTimePtr(t, tt.wantLast, tt.existing.LastValueAt)
		})
	}
}

func requireEqualTimePtr(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		require.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %v, got %v", want, got)
}

// Applying the same set of candidates in any order must land on the
// same range: min of all firsts, max of all lasts.
func TestMergeRangeOrderIndependent(t *testing.T) {
	candidates := []*model.Dataset{
		rangeCandidate(tp("2024-03-01T00:00:00Z"), tp("2024-03-02T00:00:00Z")),
		rangeCandidate(tp("2024-01-15T00:00:00Z"), tp("2024-01-16T00:00:00Z")),
		rangeCandidate(tp("2024-05-01T00:00:00Z"), tp("2024-08-01T00:00:00Z")),
		rangeCandidate(nil, tp("2024-02-01T00:00:00Z")),
		rangeCandidate(tp("2024-04-01T00:00:00Z"), nil),
	}
	wantFirst := tp("2024-01-15T00:00:00Z")
	wantLast := tp("2024-08-01T00:00:00Z")

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]*model.Dataset(nil), candidates...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		existing := rangeCandidate(nil, nil)
		for _, c := range shuffled {
			MergeRange(existing, c)
		}
		requireEqualTimePtr(t, wantFirst, existing.FirstValueAt)
		requireEqualTimePtr(t, wantLast, existing.LastValueAt)
	}
}

func TestMergeRangeUpdatesObservationPointers(t *testing.T) {
	existing := rangeCandidate(tp("2024-02-01T00:00:00Z"), tp("2024-06-01T00:00:00Z"))
	candidate := rangeCandidate(tp("2024-01-01T00:00:00Z"), tp("2024-07-01T00:00:00Z"))

	require.True(t, MergeRange(existing, candidate))
	require.NotNil(t, existing.FirstObservation)
	require.NotNil(t, existing.LastObservation)
	assert.True(t, existing.FirstObservation.SamplingTimeEnd.Equal(*existing.FirstValueAt))
	assert.True(t, existing.LastObservation.SamplingTimeEnd.Equal(*existing.LastValueAt))
}
