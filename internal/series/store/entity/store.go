// Package entity resolves the reference entities a dataset is keyed by
// (procedure, phenomenon, feature, platform, offering, category,
// service) and their locale-aware labels.
package entity

import (
	"context"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
	pkgerrors "github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/errors"
)

// Store looks up reference entities by kind and id.
type Store interface {
	// Get resolves an entity. A missing id yields a not-found error,
	// never a silent default.
	Get(ctx context.Context, kind model.EntityKind, id int64) (*model.Entity, error)
}

// NotFound builds the canonical not-found error for an entity lookup.
func NotFound(kind model.EntityKind, id int64) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s with id %d could not be found", kind, id)
}
