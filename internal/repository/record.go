package repository

import (
	"context"
	"strings"

	"qcportal/internal/model"
)

// RecordQuery holds the structured predicates pushed down to the store.
// Substring fields match case-insensitively; empty fields are ignored.
type RecordQuery struct {
	Kind         model.Kind
	ModelNoExact string
	ModelNo      string
	Version      string
	SerialNo     string
	MO           string
}

// RecordRepository persists first-piece and nonconformity records.
// Missing rows are reported as sql.ErrNoRows.
type RecordRepository interface {
	// Create inserts r into the table of r.Kind, ensuring its model row exists
	// in the same transaction. CreatedAt is stored as given; a zero value
	// stores NULL. The returned record carries the assigned id.
	Create(ctx context.Context, r *model.Record) (*model.Record, error)

	FindByID(ctx context.Context, kind model.Kind, id int64) (*model.Record, error)

	// Update rewrites every mutable column of the row r.ID. The model row is
	// ensured as in Create.
	Update(ctx context.Context, r *model.Record) error

	Delete(ctx context.Context, kind model.Kind, id int64) error

	// Find returns the records matching q, newest id first.
	Find(ctx context.Context, q RecordQuery) ([]model.Record, error)

	// Count returns the number of rows of kind.
	Count(ctx context.Context, kind model.Kind) (int, error)

	// ReplaceImagePrefix rewrites image references of modelNo's records that
	// start with oldPrefix. It returns the number of records changed.
	ReplaceImagePrefix(ctx context.Context, modelNo, oldPrefix, newPrefix string) (int, error)
}

// RewriteImages returns refs with oldPrefix replaced by newPrefix and whether
// anything changed.
func RewriteImages(refs model.ImageRefs, oldPrefix, newPrefix string) (model.ImageRefs, bool) {
	changed := false
	out := make(model.ImageRefs, len(refs))
	for i, ref := range refs {
		if strings.HasPrefix(ref, oldPrefix) {
			out[i] = newPrefix + strings.TrimPrefix(ref, oldPrefix)
			changed = true
			continue
		}
		out[i] = ref
	}
	return out, changed
}

// ContainsFold reports whether substr is empty or occurs in s ignoring case.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
