// Package app assembles the stores and services shared by the API server and
// the operator CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"qcportal/internal/cache"
	"qcportal/internal/config"
	"qcportal/internal/database"
	"qcportal/internal/database/migration"
	"qcportal/internal/logger"
	"qcportal/internal/notify"
	"qcportal/internal/repository"
	"qcportal/internal/repository/memory"
	"qcportal/internal/repository/postgres"
	"qcportal/internal/service"
	"qcportal/internal/storage"
)

// App holds the wired services. DB is nil when the in-memory store is selected.
type App struct {
	Config     *config.AppConfig
	Log        *logger.Logger
	DB         *sql.DB
	Blobs      *storage.BlobStore
	Cache      *cache.Memory
	Notifier   notify.Notifier
	Vocabulary *config.Vocabulary

	Models  service.ModelService
	Records service.RecordService
	Search  service.SearchService
	Imports service.ImportService
}

// New connects the configured backends and builds the services. Metrics are
// registered on reg when it is non-nil.
func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger, reg prometheus.Registerer) (*App, error) {
	if log == nil {
		log = logger.L()
	}
	a := &App{Config: cfg, Log: log}

	vocab := config.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		v, err := config.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			return nil, err
		}
		vocab = v
	}
	a.Vocabulary = vocab

	models, records, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	if a.Blobs, err = openBlobs(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.Cache = cache.NewMemory()
	if reg != nil {
		if err := a.Cache.Register(reg); err != nil {
			a.Close()
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
	}
	a.Notifier = notify.New(cfg.Notify.WebhookURL, time.Duration(cfg.Notify.TimeoutSec)*time.Second, log)

	a.Models = service.NewModelService(models, records, a.Blobs, a.Cache, log)
	a.Records = service.NewRecordService(records, a.Blobs, a.Cache, log,
		service.WithNotifier(a.Notifier),
		service.WithVocabulary(vocab),
		service.WithDefaultReporter(cfg.DefaultUser),
	)
	a.Search = service.NewSearchService(records, a.Cache, service.SearchLimits{
		Default: cfg.Search.DefaultLimit,
		Max:     cfg.Search.MaxLimit,
	}, log)
	a.Imports, err = service.NewImportService(a.Records.Importer(), vocab.Aliases, cfg.PreviewRows, log, reg,
		service.WithSessionTTL(time.Duration(cfg.ImportSessionTTLMin)*time.Minute),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("app_ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("blobs", cfg.Blob.Driver),
		zap.Bool("notify", cfg.Notify.WebhookURL != ""),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.ModelRepository, repository.RecordRepository, error) {
	switch a.Config.StoreDriver {
	case "memory":
		st := memory.New()
		return st.Models(), st.Records(), nil
	case "postgres", "":
		db, err := database.NewPostgres(ctx, a.Config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, a.Log, a.Config.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		a.DB = db
		return postgres.NewModelPostgres(db), postgres.NewRecordPostgres(db), nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", a.Config.StoreDriver)
}

func openBlobs(ctx context.Context, cfg *config.AppConfig) (*storage.BlobStore, error) {
	switch cfg.Blob.Driver {
	case "local":
		st, err := storage.NewLocal(cfg.Blob.Root)
		if err != nil {
			return nil, err
		}
		return storage.NewBlobStore(st, ""), nil
	case "minio", "":
		st, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		return storage.NewBlobStore(st, cfg.Blob.Root), nil
	}
	return nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.Blob.Driver)
}

// Close waits for pending notifications and releases the database pool.
func (a *App) Close() error {
	if w, ok := a.Notifier.(*notify.Webhook); ok {
		w.Wait()
	}
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
