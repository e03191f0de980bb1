package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"qcportal/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_models",
		SQL: `CREATE TABLE IF NOT EXISTS models (
  model_no          TEXT PRIMARY KEY CHECK (model_no <> ''),
  display_name      TEXT NOT NULL DEFAULT '',
  customer_supplier TEXT NOT NULL DEFAULT '',
  folder            TEXT NULL
);`,
	},
	{
		Name: "create_table_first_piece",
		SQL: `CREATE TABLE IF NOT EXISTS first_piece (
  id                BIGSERIAL   PRIMARY KEY,
  created_at        TIMESTAMPTZ NULL,
  model_no          TEXT        NOT NULL REFERENCES models (model_no) ON DELETE RESTRICT ON UPDATE RESTRICT,
  reporter          TEXT        NOT NULL DEFAULT '',
  event_date        TEXT        NOT NULL DEFAULT '',
  version           TEXT        NOT NULL DEFAULT '',
  serial_no         TEXT        NOT NULL DEFAULT '',
  mo                TEXT        NOT NULL DEFAULT '',
  line              TEXT        NOT NULL DEFAULT '',
  station           TEXT        NOT NULL DEFAULT '',
  shift             TEXT        NOT NULL DEFAULT '',
  customer_supplier TEXT        NOT NULL DEFAULT '',
  status            TEXT        NOT NULL DEFAULT '',
  review_notes      TEXT        NOT NULL DEFAULT '',
  images            TEXT        NOT NULL DEFAULT '[]',
  extension         TEXT        NOT NULL DEFAULT '{}'
);`,
	},
	{
		Name: "create_table_nonconformity",
		SQL: `CREATE TABLE IF NOT EXISTS nonconformity (
  id                BIGSERIAL        PRIMARY KEY,
  created_at        TIMESTAMPTZ      NULL,
  model_no          TEXT             NOT NULL REFERENCES models (model_no) ON DELETE RESTRICT ON UPDATE RESTRICT,
  reporter          TEXT             NOT NULL DEFAULT '',
  event_date        TEXT             NOT NULL DEFAULT '',
  version           TEXT             NOT NULL DEFAULT '',
  serial_no         TEXT             NOT NULL DEFAULT '',
  mo                TEXT             NOT NULL DEFAULT '',
  line              TEXT             NOT NULL DEFAULT '',
  station           TEXT             NOT NULL DEFAULT '',
  shift             TEXT             NOT NULL DEFAULT '',
  customer_supplier TEXT             NOT NULL DEFAULT '',
  po                TEXT             NOT NULL DEFAULT '',
  department        TEXT             NOT NULL DEFAULT '',
  unit_head         TEXT             NOT NULL DEFAULT '',
  responsibility    TEXT             NOT NULL DEFAULT '',
  source            TEXT             NOT NULL DEFAULT '',
  category          TEXT             NOT NULL DEFAULT '',
  defective_item    TEXT             NOT NULL DEFAULT '',
  outflow           TEXT             NOT NULL DEFAULT '',
  severity          TEXT             NOT NULL DEFAULT 'Major' CHECK (severity IN ('Critical', 'Major', 'Minor')),
  description       TEXT             NOT NULL DEFAULT '',
  defective_qty     DOUBLE PRECISION NOT NULL DEFAULT 0,
  inspection_qty    DOUBLE PRECISION NOT NULL DEFAULT 0,
  lot_qty           DOUBLE PRECISION NOT NULL DEFAULT 0,
  images            TEXT             NOT NULL DEFAULT '[]',
  extension         TEXT             NOT NULL DEFAULT '{}'
);`,
	},
	{
		Name: "create_index_first_piece_model_no",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_first_piece_model_no ON first_piece (model_no);`,
	},
	{
		Name: "create_index_nonconformity_model_no",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_nonconformity_model_no ON nonconformity (model_no);`,
	},
	{
		Name: "create_index_nonconformity_severity",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_nonconformity_severity ON nonconformity (severity, id DESC);`,
	},
	{
		Name: "create_index_models_folder",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_models_folder ON models (folder);`,
	},
}

const (
	createLedgerSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	appliedSQL = `SELECT name FROM schema_migrations`
	recordSQL  = `INSERT INTO schema_migrations (name) VALUES ($1)`
)

// EnsureMigrated applies every step not yet recorded in schema_migrations.
// Each step runs in its own transaction together with its ledger row.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logger.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))
	log.Info("db_migration_check")

	if _, err := db.ExecContext(ctx, createLedgerSQL); err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to create migration ledger: %w", err)
	}

	applied, err := appliedSteps(ctx, db)
	if err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return err
	}

	pending := 0
	for _, step := range steps {
		if applied[step.Name] {
			continue
		}
		pending++
		stepStart := time.Now()
		if err := applyStep(ctx, db, step); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	if pending == 0 {
		log.Info("db_migration_skip", zap.Duration("duration", time.Since(start)))
		return nil
	}
	log.Info("db_migration_success", zap.Int("steps", pending), zap.Duration("duration", time.Since(start)))
	return nil
}

func appliedSteps(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, appliedSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration ledger: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read migration ledger: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func applyStep(ctx context.Context, db *sql.DB, step migrationStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, recordSQL, step.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
