//go:build integration

package entity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/store/entity"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/testutil/containers"
)

func TestLabelResolverWithCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	require.NoError(t, rc.FlushAll(ctx))

	store := entity.NewMemory()
	store.Put(&model.Entity{
		ID:           1,
		Kind:         model.EntityProcedure,
		Name:         "Pegel",
		Translations: map[string]string{"en": "gauge"},
	})
	resolver := entity.NewLabelResolver(store, entity.WithCache(rc.Client, time.Minute))

	label, err := resolver.Label(ctx, model.EntityProcedure, 1, "en")
	require.NoError(t, err)
	assert.Equal(t, "gauge", label)

	cached, err := rc.Client.Get(ctx, "label:procedure:1:en").Result()
	require.NoError(t, err)
	assert.Equal(t, "gauge", cached)

	// cache hit survives the entity disappearing from the store
	store.Put(&model.Entity{ID: 1, Kind: model.EntityProcedure, Name: "renamed"})
	label, err = resolver.Label(ctx, model.EntityProcedure, 1, "en")
	require.NoError(t, err)
	assert.Equal(t, "gauge", label)
}
