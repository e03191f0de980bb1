package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"qcportal/internal/cache"
	"qcportal/internal/logger"
	"qcportal/internal/model"
	"qcportal/internal/repository"
	"qcportal/internal/storage"
)

// ModelPatch carries the attributes to change; nil fields are left as they are.
type ModelPatch struct {
	DisplayName      *string
	CustomerSupplier *string
	Folder           *string
}

// RenameResult reports a rename. BlobWarning is set when the database change
// committed but moving the image directory did not complete; references to
// the old directory then stay valid.
type RenameResult struct {
	Model        model.Model `json:"model"`
	RecordsMoved int         `json:"records_moved"`
	ImagesMoved  int         `json:"images_moved"`
	BlobWarning  string      `json:"blob_warning,omitempty"`
}

// DeleteModelOptions selects what a model delete may take with it.
type DeleteModelOptions struct {
	CascadeRecords bool
	CascadeBlobs   bool
}

// DeleteModelResult reports a model delete.
type DeleteModelResult struct {
	RecordsDeleted int    `json:"records_deleted"`
	BlobWarning    string `json:"blob_warning,omitempty"`
}

// ModelService is the model registry.
type ModelService interface {
	// Upsert inserts m or replaces all three attributes of an existing model.
	Upsert(ctx context.Context, m model.Model) (*model.Model, error)

	// Patch changes only the attributes set in p.
	Patch(ctx context.Context, modelNo string, p ModelPatch) (*model.Model, error)

	Get(ctx context.Context, modelNo string) (*model.Model, error)

	// List returns the models matching text (see model.Model.Matches) and, when
	// folder is set, tagged with that folder.
	List(ctx context.Context, text, folder string) ([]model.Model, error)

	// Folders returns the distinct non-empty folder tags, sorted.
	Folders(ctx context.Context) ([]string, error)

	// Rename moves a model and all its records to newNo, then relocates its images.
	Rename(ctx context.Context, oldNo, newNo string) (*RenameResult, error)

	Delete(ctx context.Context, modelNo string, opts DeleteModelOptions) (*DeleteModelResult, error)
}

type modelService struct {
	models  repository.ModelRepository
	records repository.RecordRepository
	images  ImageStore
	cache   cache.Cache
	log     *logger.Logger
}

// NewModelService constructs a ModelService.
func NewModelService(models repository.ModelRepository, records repository.RecordRepository, images ImageStore, c cache.Cache, log *logger.Logger) ModelService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &modelService{models: models, records: records, images: images, cache: c, log: log.Named("models")}
}

func normalizeModel(m model.Model) model.Model {
	m.ModelNo = strings.TrimSpace(m.ModelNo)
	m.DisplayName = strings.TrimSpace(m.DisplayName)
	m.CustomerSupplier = strings.TrimSpace(m.CustomerSupplier)
	m.Folder = strings.TrimSpace(m.Folder)
	m.Root = ""
	return m
}

func (s *modelService) Upsert(ctx context.Context, m model.Model) (*model.Model, error) {
	m = normalizeModel(m)
	if m.ModelNo == "" {
		return nil, validationf("model_no is required")
	}
	if err := s.models.Upsert(ctx, &m); err != nil {
		return nil, fmt.Errorf("upsert model: %w", err)
	}
	s.cache.InvalidateAll()
	out := m.WithRoot()
	return &out, nil
}

func (s *modelService) Patch(ctx context.Context, modelNo string, p ModelPatch) (*model.Model, error) {
	cur, err := s.Get(ctx, modelNo)
	if err != nil {
		return nil, err
	}
	next := *cur
	if p.DisplayName != nil {
		next.DisplayName = *p.DisplayName
	}
	if p.CustomerSupplier != nil {
		next.CustomerSupplier = *p.CustomerSupplier
	}
	if p.Folder != nil {
		next.Folder = *p.Folder
	}
	return s.Upsert(ctx, next)
}

func (s *modelService) Get(ctx context.Context, modelNo string) (*model.Model, error) {
	modelNo = strings.TrimSpace(modelNo)
	if modelNo == "" {
		return nil, validationf("model_no is required")
	}
	m, err := s.models.FindByNo(ctx, modelNo)
	if err != nil {
		return nil, translate(err, "model "+modelNo)
	}
	out := m.WithRoot()
	return &out, nil
}

func (s *modelService) all(ctx context.Context) ([]model.Model, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("models.list", nil), func(ctx context.Context) ([]model.Model, error) {
		items, err := s.models.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i] = items[i].WithRoot()
		}
		return items, nil
	})
}

func (s *modelService) List(ctx context.Context, text, folder string) ([]model.Model, error) {
	items, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	folder = strings.TrimSpace(folder)
	out := make([]model.Model, 0, len(items))
	for _, m := range items {
		if folder != "" && m.Folder != folder {
			continue
		}
		if m.Matches(text) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *modelService) Folders(ctx context.Context) ([]string, error) {
	items, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, m := range items {
		if m.Folder != "" && !seen[m.Folder] {
			seen[m.Folder] = true
			out = append(out, m.Folder)
		}
	}
	sort.Strings(out)
	return out, nil
}

// mergeModels combines the attributes of two models when no attribute is set
// to different values on both sides.
func mergeModels(a, b model.Model) (model.Model, bool) {
	pick := func(x, y string) (string, bool) {
		switch {
		case x == "":
			return y, true
		case y == "" || x == y:
			return x, true
		}
		return "", false
	}
	var ok [3]bool
	out := model.Model{ModelNo: b.ModelNo}
	out.DisplayName, ok[0] = pick(a.DisplayName, b.DisplayName)
	out.CustomerSupplier, ok[1] = pick(a.CustomerSupplier, b.CustomerSupplier)
	out.Folder, ok[2] = pick(a.Folder, b.Folder)
	return out, ok[0] && ok[1] && ok[2]
}

func (s *modelService) Rename(ctx context.Context, oldNo, newNo string) (*RenameResult, error) {
	oldNo, newNo = strings.TrimSpace(oldNo), strings.TrimSpace(newNo)
	if newNo == "" {
		return nil, validationf("new model_no is required")
	}
	if oldNo == newNo {
		return nil, validationf("new model_no equals the current one")
	}
	cur, err := s.models.FindByNo(ctx, oldNo)
	if err != nil {
		return nil, translate(err, "model "+oldNo)
	}
	target := normalizeModel(*cur)
	target.ModelNo = newNo
	existing, err := s.models.FindByNo(ctx, newNo)
	switch {
	case err == nil:
		merged, ok := mergeModels(target, normalizeModel(*existing))
		if !ok {
			return nil, fmt.Errorf("%w: model %s already exists with different attributes", ErrConflict, newNo)
		}
		target = merged
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, err
	}

	moved, err := s.models.Rename(ctx, oldNo, target)
	if err != nil {
		return nil, translate(err, "model "+oldNo)
	}
	s.cache.InvalidateAll()
	res := &RenameResult{Model: target.WithRoot(), RecordsMoved: moved}

	log := s.log.WithContext(ctx).With(zap.String("model_no", oldNo), zap.String("new_model_no", newNo))
	log.Info("model renamed", zap.Int("records_moved", moved))
	if s.images == nil || storage.Dir(oldNo) == storage.Dir(newNo) {
		return res, nil
	}
	n, err := s.images.CopyDir(ctx, oldNo, newNo)
	res.ImagesMoved = n
	if err != nil {
		res.BlobWarning = "image directory not moved: " + err.Error()
		log.Warn("rename image copy failed", zap.Error(err))
		return res, nil
	}
	if _, err := s.records.ReplaceImagePrefix(ctx, newNo, storage.Dir(oldNo), storage.Dir(newNo)); err != nil {
		res.BlobWarning = "image references not rewritten: " + err.Error()
		log.Warn("rename image reference rewrite failed", zap.Error(err))
		return res, nil
	}
	s.cache.InvalidateAll()
	if err := s.images.DeleteDir(ctx, oldNo); err != nil {
		res.BlobWarning = "old image directory not removed: " + err.Error()
		log.Warn("rename old image directory cleanup failed", zap.Error(err))
	}
	return res, nil
}

func (s *modelService) Delete(ctx context.Context, modelNo string, opts DeleteModelOptions) (*DeleteModelResult, error) {
	modelNo = strings.TrimSpace(modelNo)
	if modelNo == "" {
		return nil, validationf("model_no is required")
	}
	if _, err := s.models.FindByNo(ctx, modelNo); err != nil {
		return nil, translate(err, "model "+modelNo)
	}

	var refs []string
	if opts.CascadeBlobs && opts.CascadeRecords {
		for _, kind := range model.Kinds() {
			recs, err := s.records.Find(ctx, repository.RecordQuery{Kind: kind, ModelNoExact: modelNo})
			if err != nil {
				return nil, err
			}
			for _, r := range recs {
				refs = append(refs, r.Images...)
			}
		}
	}

	deleted, err := s.models.Delete(ctx, modelNo, opts.CascadeRecords)
	if err != nil {
		return nil, translate(err, "model "+modelNo)
	}
	s.cache.InvalidateAll()
	log := s.log.WithContext(ctx).With(zap.String("model_no", modelNo))
	log.Info("model deleted", zap.Int("records_deleted", deleted))

	res := &DeleteModelResult{RecordsDeleted: deleted}
	if !opts.CascadeBlobs || s.images == nil {
		return res, nil
	}
	var errs []error
	for _, ref := range refs {
		if err := s.images.Delete(ctx, ref); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.images.DeleteDir(ctx, modelNo); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		res.BlobWarning = "some images were not deleted: " + err.Error()
		log.Warn("model image cleanup incomplete", zap.Error(err))
	}
	return res, nil
}
