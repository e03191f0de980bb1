package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"qcportal/internal/database"
	"qcportal/internal/model"
	"qcportal/internal/repository"
)

// RecordPostgres is a PostgreSQL implementation of repository.RecordRepository.
// Each kind lives in its own table named after the kind.
type RecordPostgres struct {
	db *sql.DB
}

// NewRecordPostgres creates a new RecordPostgres repository.
func NewRecordPostgres(db *sql.DB) *RecordPostgres {
	return &RecordPostgres{db: db}
}

var _ repository.RecordRepository = (*RecordPostgres)(nil)

// column binds a table column to the record field it is read into and written from.
type column struct {
	name string
	ref  func(r *model.Record) any
}

var commonColumns = []column{
	{"model_no", func(r *model.Record) any { return &r.ModelNo }},
	{"reporter", func(r *model.Record) any { return &r.Reporter }},
	{"event_date", func(r *model.Record) any { return &r.EventDate }},
	{"version", func(r *model.Record) any { return &r.Version }},
	{"serial_no", func(r *model.Record) any { return &r.SerialNo }},
	{"mo", func(r *model.Record) any { return &r.MO }},
	{"line", func(r *model.Record) any { return &r.Line }},
	{"station", func(r *model.Record) any { return &r.Station }},
	{"shift", func(r *model.Record) any { return &r.Shift }},
	{"customer_supplier", func(r *model.Record) any { return &r.CustomerSupplier }},
}

var firstPieceColumns = []column{
	{"status", func(r *model.Record) any { return &r.Status }},
	{"review_notes", func(r *model.Record) any { return &r.ReviewNotes }},
}

var nonconformityColumns = []column{
	{"po", func(r *model.Record) any { return &r.PO }},
	{"department", func(r *model.Record) any { return &r.Department }},
	{"unit_head", func(r *model.Record) any { return &r.UnitHead }},
	{"responsibility", func(r *model.Record) any { return &r.Responsibility }},
	{"source", func(r *model.Record) any { return &r.Source }},
	{"category", func(r *model.Record) any { return &r.Category }},
	{"defective_item", func(r *model.Record) any { return &r.DefectiveItem }},
	{"outflow", func(r *model.Record) any { return &r.Outflow }},
	{"severity", func(r *model.Record) any { return (*string)(&r.Severity) }},
	{"description", func(r *model.Record) any { return &r.Description }},
	{"defective_qty", func(r *model.Record) any { return &r.DefectiveQty }},
	{"inspection_qty", func(r *model.Record) any { return &r.InspectionQty }},
	{"lot_qty", func(r *model.Record) any { return &r.LotQty }},
}

var blobColumns = []column{
	{"images", func(r *model.Record) any { return &r.Images }},
	{"extension", func(r *model.Record) any { return &r.Extension }},
}

// columnsOf returns the mutable columns of kind, excluding id and created_at.
func columnsOf(kind model.Kind) []column {
	cols := append([]column{}, commonColumns...)
	if kind == model.KindFirstPiece {
		cols = append(cols, firstPieceColumns...)
	} else {
		cols = append(cols, nonconformityColumns...)
	}
	return append(cols, blobColumns...)
}

func columnNames(cols []column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func tableOf(kind model.Kind) (string, error) {
	switch kind {
	case model.KindFirstPiece, model.KindNonconformity:
		return string(kind), nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
}

func selectSQL(kind model.Kind) string {
	return `SELECT id, created_at, ` + strings.Join(columnNames(columnsOf(kind)), ", ") + ` FROM ` + string(kind)
}

func scanRecord(s scanner, kind model.Kind) (*model.Record, error) {
	rec := model.Record{Kind: kind}
	var created sql.NullTime
	dest := []any{&rec.ID, &created}
	for _, c := range columnsOf(kind) {
		dest = append(dest, c.ref(&rec))
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if created.Valid {
		rec.CreatedAt = created.Time.UTC()
	}
	return &rec, nil
}

func createdAtArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Create inserts the record and returns it with its new id.
func (r *RecordPostgres) Create(ctx context.Context, rec *model.Record) (*model.Record, error) {
	table, err := tableOf(rec.Kind)
	if err != nil {
		return nil, err
	}
	out := rec.Clone()
	cols := columnsOf(rec.Kind)
	args := []any{createdAtArg(rec.CreatedAt)}
	placeholders := []string{"$1"}
	for i, c := range cols {
		args = append(args, c.ref(&out))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
	}
	q := `INSERT INTO ` + table + ` (created_at, ` + strings.Join(columnNames(cols), ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		RETURNING id`

	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := ensureModel(ctx, tx, rec.ModelNo); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, q, args...).Scan(&out.ID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single record.
func (r *RecordPostgres) FindByID(ctx context.Context, kind model.Kind, id int64) (*model.Record, error) {
	if _, err := tableOf(kind); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, selectSQL(kind)+` WHERE id = $1`, id)
	return scanRecord(row, kind)
}

// Update rewrites the mutable columns of rec.ID.
func (r *RecordPostgres) Update(ctx context.Context, rec *model.Record) error {
	table, err := tableOf(rec.Kind)
	if err != nil {
		return err
	}
	cols := columnsOf(rec.Kind)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c.name, i+1)
		args = append(args, c.ref(rec))
	}
	args = append(args, rec.ID)
	q := `UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + fmt.Sprintf(` WHERE id = $%d`, len(cols)+1)

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := ensureModel(ctx, tx, rec.ModelNo); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Delete removes a record; sql.ErrNoRows is returned when it does not exist.
func (r *RecordPostgres) Delete(ctx context.Context, kind model.Kind, id int64) error {
	table, err := tableOf(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Find runs the structured predicates of q and returns matches newest first.
func (r *RecordPostgres) Find(ctx context.Context, q repository.RecordQuery) ([]model.Record, error) {
	if _, err := tableOf(q.Kind); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.ModelNoExact != "" {
		add("model_no = $%d", q.ModelNoExact)
	}
	for _, p := range []struct{ col, val string }{
		{"model_no", q.ModelNo},
		{"version", q.Version},
		{"serial_no", q.SerialNo},
		{"mo", q.MO},
	} {
		if p.val != "" {
			add(p.col+" ILIKE $%d", "%"+escapeLike(p.val)+"%")
		}
	}

	stmt := selectSQL(q.Kind)
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, " AND ")
	}
	stmt += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, q.Kind)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of rows of kind.
func (r *RecordPostgres) Count(ctx context.Context, kind model.Kind) (int, error) {
	table, err := tableOf(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ReplaceImagePrefix rewrites the image references of modelNo's records in one transaction.
func (r *RecordPostgres) ReplaceImagePrefix(ctx context.Context, modelNo, oldPrefix, newPrefix string) (int, error) {
	changed := 0
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, kind := range model.Kinds() {
			rows, err := tx.QueryContext(ctx, `SELECT id, images FROM `+string(kind)+` WHERE model_no = $1`, modelNo)
			if err != nil {
				return err
			}
			type pending struct {
				id     int64
				images model.ImageRefs
			}
			var updates []pending
			for rows.Next() {
				var (
					id     int64
					images model.ImageRefs
				)
				if err := rows.Scan(&id, &images); err != nil {
					rows.Close()
					return err
				}
				if next, ok := repository.RewriteImages(images, oldPrefix, newPrefix); ok {
					updates = append(updates, pending{id: id, images: next})
				}
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			if err := rows.Close(); err != nil {
				return err
			}
			for _, u := range updates {
				if _, err := tx.ExecContext(ctx, `UPDATE `+string(kind)+` SET images = $1 WHERE id = $2`, u.images, u.id); err != nil {
					return err
				}
			}
			changed += len(updates)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
