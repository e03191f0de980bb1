package repository

import (
	"context"
	"errors"

	"qcportal/internal/model"
)

// ErrHasDependents is returned by a non-cascading model delete while records
// still reference the model.
var ErrHasDependents = errors.New("model has dependent records")

// ModelRepository persists the model registry. Missing rows are reported as sql.ErrNoRows.
type ModelRepository interface {
	// Upsert inserts m or replaces all attributes of an existing row.
	Upsert(ctx context.Context, m *model.Model) error

	// Ensure inserts a bare row for modelNo if none exists.
	Ensure(ctx context.Context, modelNo string) error

	FindByNo(ctx context.Context, modelNo string) (*model.Model, error)

	// List returns every model ordered by model_no.
	List(ctx context.Context) ([]model.Model, error)

	// Rename writes target (upserting over any existing row with its key), moves
	// every record of oldNo onto target.ModelNo and removes oldNo, in one
	// transaction. It returns the number of records moved.
	Rename(ctx context.Context, oldNo string, target model.Model) (int, error)

	// Delete removes the model. With cascade, its records are deleted in the
	// same transaction; without it ErrHasDependents is returned when any exist.
	// It returns the number of records deleted.
	Delete(ctx context.Context, modelNo string, cascade bool) (int, error)

	// CountDependents counts the records of both kinds referencing modelNo.
	CountDependents(ctx context.Context, modelNo string) (int, error)
}
