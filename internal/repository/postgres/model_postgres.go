package postgres

import (
	"context"
	"database/sql"

	"qcportal/internal/database"
	"qcportal/internal/model"
	"qcportal/internal/repository"
)

// ModelPostgres is a PostgreSQL implementation of repository.ModelRepository.
type ModelPostgres struct {
	db *sql.DB
}

// NewModelPostgres creates a new ModelPostgres repository.
func NewModelPostgres(db *sql.DB) *ModelPostgres {
	return &ModelPostgres{db: db}
}

var _ repository.ModelRepository = (*ModelPostgres)(nil)

const (
	upsertModelSQL = `
		INSERT INTO models (model_no, display_name, customer_supplier, folder)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model_no) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    customer_supplier = EXCLUDED.customer_supplier,
		    folder = EXCLUDED.folder
	`
	ensureModelSQL = `INSERT INTO models (model_no) VALUES ($1) ON CONFLICT (model_no) DO NOTHING`
	selectModelSQL = `SELECT model_no, display_name, customer_supplier, folder FROM models`
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertModel(ctx context.Context, db execer, m *model.Model) error {
	_, err := db.ExecContext(ctx, upsertModelSQL, m.ModelNo, m.DisplayName, m.CustomerSupplier, nullString(m.Folder))
	return err
}

func ensureModel(ctx context.Context, db execer, modelNo string) error {
	_, err := db.ExecContext(ctx, ensureModelSQL, modelNo)
	return err
}

// Upsert replaces name, customer and folder of the model, inserting it if absent.
func (r *ModelPostgres) Upsert(ctx context.Context, m *model.Model) error {
	return upsertModel(ctx, r.db, m)
}

// Ensure inserts a bare model row unless one exists.
func (r *ModelPostgres) Ensure(ctx context.Context, modelNo string) error {
	return ensureModel(ctx, r.db, modelNo)
}

// FindByNo fetches a single model.
func (r *ModelPostgres) FindByNo(ctx context.Context, modelNo string) (*model.Model, error) {
	row := r.db.QueryRowContext(ctx, selectModelSQL+` WHERE model_no = $1`, modelNo)
	m, err := scanModel(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns all models ordered by model_no.
func (r *ModelPostgres) List(ctx context.Context) ([]model.Model, error) {
	rows, err := r.db.QueryContext(ctx, selectModelSQL+` ORDER BY model_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Model, 0)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Rename moves oldNo's records onto target and drops the old row.
func (r *ModelPostgres) Rename(ctx context.Context, oldNo string, target model.Model) (int, error) {
	moved := 0
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := upsertModel(ctx, tx, &target); err != nil {
			return err
		}
		for _, kind := range model.Kinds() {
			res, err := tx.ExecContext(ctx, `UPDATE `+string(kind)+` SET model_no = $1 WHERE model_no = $2`, target.ModelNo, oldNo)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			moved += int(n)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM models WHERE model_no = $1`, oldNo)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// Delete removes the model and, with cascade, its records.
func (r *ModelPostgres) Delete(ctx context.Context, modelNo string, cascade bool) (int, error) {
	deleted := 0
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, kind := range model.Kinds() {
			if !cascade {
				var n int
				if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+string(kind)+` WHERE model_no = $1`, modelNo).Scan(&n); err != nil {
					return err
				}
				if n > 0 {
					return repository.ErrHasDependents
				}
				continue
			}
			res, err := tx.ExecContext(ctx, `DELETE FROM `+string(kind)+` WHERE model_no = $1`, modelNo)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			deleted += int(n)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM models WHERE model_no = $1`, modelNo)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountDependents counts records of both kinds for modelNo.
func (r *ModelPostgres) CountDependents(ctx context.Context, modelNo string) (int, error) {
	const q = `
		SELECT (SELECT COUNT(*) FROM first_piece WHERE model_no = $1)
		     + (SELECT COUNT(*) FROM nonconformity WHERE model_no = $1)
	`
	var n int
	if err := r.db.QueryRowContext(ctx, q, modelNo).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(s scanner) (*model.Model, error) {
	var (
		m      model.Model
		folder sql.NullString
	)
	if err := s.Scan(&m.ModelNo, &m.DisplayName, &m.CustomerSupplier, &folder); err != nil {
		return nil, err
	}
	m.Folder = folder.String
	return &m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
