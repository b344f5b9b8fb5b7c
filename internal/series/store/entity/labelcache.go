package entity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

const defaultLabelTTL = 10 * time.Minute

// LabelResolver answers locale-aware display labels for reference
// entities. With a Redis client it caches resolved labels; cache
// failures degrade to a direct lookup instead of failing the request.
type LabelResolver struct {
	store  Store
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// LabelOption configures a LabelResolver.
type LabelOption func(*LabelResolver)

// WithCache enables Redis-backed label caching. A nil client leaves
// caching off.
func WithCache(client *redis.Client, ttl time.Duration) LabelOption {
	return func(r *LabelResolver) {
		r.cache = client
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) LabelOption {
	return func(r *LabelResolver) {
		r.logger = logger
	}
}

// NewLabelResolver constructs a resolver over the given entity store.
func NewLabelResolver(store Store, opts ...LabelOption) *LabelResolver {
	r := &LabelResolver{
		store:  store,
		ttl:    defaultLabelTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Label resolves the display label of an entity for the given locale.
func (r *LabelResolver) Label(ctx context.Context, kind model.EntityKind, id int64, locale string) (string, error) {
	key := labelKey(kind, id, locale)
	if r.cache != nil {
		label, err := r.cache.Get(ctx, key).Result()
		if err == nil {
			return label, nil
		}
		if err != redis.Nil {
			r.logger.WarnContext(ctx, "label cache read failed", "key", key, "error", err)
		}
	}

	e, err := r.store.Get(ctx, kind, id)
	if err != nil {
		return "", err
	}
	label := e.LabelFor(locale)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, label, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "label cache write failed", "key", key, "error", err)
		}
	}
	return label, nil
}

func labelKey(kind model.EntityKind, id int64, locale string) string {
	if locale == "" {
		locale = "default"
	}
	return fmt.Sprintf("label:%s:%d:%s", kind, id, locale)
}
