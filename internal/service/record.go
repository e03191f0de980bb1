package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"qcportal/internal/cache"
	"qcportal/internal/config"
	"qcportal/internal/importer"
	"qcportal/internal/logger"
	"qcportal/internal/model"
	"qcportal/internal/notify"
	"qcportal/internal/repository"
)

// NewRecord is a manual entry: structured field values by name, extension
// keys, and images to store alongside.
type NewRecord struct {
	Kind      model.Kind
	Fields    map[string]string
	Extension model.Extension
	Images    []Image
}

// CreateResult carries the stored record and any image that could not be saved.
type CreateResult struct {
	Record   *model.Record `json:"record"`
	Warnings []string      `json:"warnings,omitempty"`
}

// RecordService is the record store.
type RecordService interface {
	// Insert validates and stores r, stamping created_at. It is the write
	// path of both manual entry and imports.
	Insert(ctx context.Context, r *model.Record) (*model.Record, error)

	// Create stores a manual entry and its images. An image that fails to
	// save is reported in the result and does not block the record.
	Create(ctx context.Context, in NewRecord) (*CreateResult, error)

	Get(ctx context.Context, kind model.Kind, id int64) (*model.Record, error)

	// Update overwrites only the supplied fields and merges ext into the
	// existing extension map key by key.
	Update(ctx context.Context, kind model.Kind, id int64, fields map[string]string, ext model.Extension) (*model.Record, error)

	// Delete removes the record and, with deleteBlobs, its images (best effort).
	Delete(ctx context.Context, kind model.Kind, id int64, deleteBlobs bool) error

	// AttachImage saves img and appends it to the record's images.
	AttachImage(ctx context.Context, kind model.Kind, id int64, img Image) (*model.Record, error)

	// Importer returns the write path for bulk imports. It validates and
	// stores like Insert but sends no notifications.
	Importer() importer.Inserter
}

type recordService struct {
	records  repository.RecordRepository
	images   ImageStore
	cache    cache.Cache
	notifier notify.Notifier
	vocab    *config.Vocabulary
	reporter string
	log      *logger.Logger
	now      func() time.Time
}

// RecordOption configures a RecordService.
type RecordOption func(*recordService)

// WithNotifier sets where alerts for NG first pieces and nonconformities go.
func WithNotifier(n notify.Notifier) RecordOption {
	return func(s *recordService) { s.notifier = n }
}

// WithVocabulary sets the allowed first-piece statuses.
func WithVocabulary(v *config.Vocabulary) RecordOption {
	return func(s *recordService) { s.vocab = v }
}

// WithDefaultReporter names the reporter of records submitted without one.
func WithDefaultReporter(name string) RecordOption {
	return func(s *recordService) { s.reporter = name }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RecordOption {
	return func(s *recordService) { s.now = now }
}

// NewRecordService constructs a RecordService.
func NewRecordService(records repository.RecordRepository, images ImageStore, c cache.Cache, log *logger.Logger, opts ...RecordOption) RecordService {
	s := &recordService{
		records:  records,
		images:   images,
		cache:    c,
		notifier: notify.Noop{},
		vocab:    config.DefaultVocabulary(),
		log:      log,
		now:      time.Now,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("records")
	return s
}

func checkKind(kind model.Kind) error {
	for _, k := range model.Kinds() {
		if k == kind {
			return nil
		}
	}
	return validationf("unknown record kind %q", kind)
}

// normalize fills defaults and checks the invariants shared by insert and update.
func (s *recordService) normalize(r *model.Record) error {
	r.ModelNo = strings.TrimSpace(r.ModelNo)
	if r.ModelNo == "" {
		return validationf("model_no is required")
	}
	switch r.Kind {
	case model.KindFirstPiece:
		if r.Status == "" {
			r.Status = s.vocab.DefaultStatus()
		}
		if !s.vocab.AllowsStatus(r.Status) {
			return validationf("status %q is not one of %s", r.Status, strings.Join(s.vocab.Statuses, ", "))
		}
	case model.KindNonconformity:
		sev, err := model.ParseSeverity(string(r.Severity))
		if err != nil {
			return validationf("%v", err)
		}
		r.Severity = sev
	}
	if r.Extension == nil {
		r.Extension = model.Extension{}
	}
	if r.Images == nil {
		r.Images = model.ImageRefs{}
	}
	return nil
}

func (s *recordService) Insert(ctx context.Context, r *model.Record) (*model.Record, error) {
	return s.insert(ctx, r, true)
}

type quietInserter struct{ s *recordService }

func (q quietInserter) Insert(ctx context.Context, r *model.Record) (*model.Record, error) {
	return q.s.insert(ctx, r, false)
}

func (s *recordService) Importer() importer.Inserter { return quietInserter{s} }

func (s *recordService) insert(ctx context.Context, r *model.Record, alert bool) (*model.Record, error) {
	if r == nil {
		return nil, validationf("record is nil")
	}
	if err := checkKind(r.Kind); err != nil {
		return nil, err
	}
	rec := r.Clone()
	if err := s.normalize(&rec); err != nil {
		return nil, err
	}
	if rec.Reporter == "" {
		rec.Reporter = s.reporter
	}
	rec.ID = 0
	rec.CreatedAt = s.now().UTC()
	if rec.EventDate == "" {
		rec.EventDate = model.FormatDate(rec.CreatedAt)
	}

	stored, err := s.records.Create(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", rec.Kind, err)
	}
	s.cache.InvalidateAll()
	s.log.WithContext(ctx).Debug("record created",
		zap.String("kind", string(stored.Kind)),
		zap.Int64("id", stored.ID),
		zap.String("model_no", stored.ModelNo),
	)
	if msg, ok := notify.ForRecord(stored); ok && alert {
		s.notifier.Send(ctx, msg)
	}
	return stored, nil
}

func (s *recordService) Create(ctx context.Context, in NewRecord) (*CreateResult, error) {
	if err := checkKind(in.Kind); err != nil {
		return nil, err
	}
	rec := &model.Record{Kind: in.Kind, Extension: in.Extension.Clone()}
	if err := rec.Apply(in.Fields); err != nil {
		return nil, validationf("%v", err)
	}
	if strings.TrimSpace(rec.ModelNo) == "" {
		return nil, validationf("model_no is required")
	}

	res := &CreateResult{}
	var saved []string
	for _, img := range in.Images {
		rel, err := s.saveImage(ctx, rec.ModelNo, img)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("image %s not saved: %v", img.Filename, err))
			continue
		}
		saved = append(saved, rel)
	}
	rec.Images = append(model.ImageRefs{}, saved...)

	stored, err := s.Insert(ctx, rec)
	if err != nil {
		// Remove the images written for a record that was never stored.
		for _, rel := range saved {
			if delErr := s.images.Delete(ctx, rel); delErr != nil {
				s.log.WithContext(ctx).Warn("orphan image cleanup failed", zap.String("path", rel), zap.Error(delErr))
			}
		}
		return nil, err
	}
	res.Record = stored
	return res, nil
}

func (s *recordService) saveImage(ctx context.Context, modelNo string, img Image) (string, error) {
	if s.images == nil {
		return "", errors.New("no image store configured")
	}
	if len(img.Data) == 0 {
		return "", errors.New("empty file")
	}
	rel, err := s.images.Save(ctx, modelNo, img.Data, img.Filename)
	if err != nil {
		s.log.WithContext(ctx).Warn("image save failed",
			zap.String("model_no", modelNo),
			zap.String("filename", img.Filename),
			zap.Error(err),
		)
		return "", err
	}
	return rel, nil
}

func (s *recordService) Get(ctx context.Context, kind model.Kind, id int64) (*model.Record, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	rec, err := s.records.FindByID(ctx, kind, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("%s %d", kind, id))
	}
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, kind model.Kind, id int64, fields map[string]string, ext model.Extension) (*model.Record, error) {
	cur, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if err := next.Apply(fields); err != nil {
		return nil, validationf("%v", err)
	}
	if err := s.normalize(&next); err != nil {
		return nil, err
	}
	next.Extension = next.Extension.Merge(ext)

	if err := s.records.Update(ctx, &next); err != nil {
		return nil, translate(err, fmt.Sprintf("%s %d", kind, id))
	}
	s.cache.InvalidateAll()
	return &next, nil
}

func (s *recordService) Delete(ctx context.Context, kind model.Kind, id int64, deleteBlobs bool) error {
	cur, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, kind, id); err != nil {
		return translate(err, fmt.Sprintf("%s %d", kind, id))
	}
	s.cache.InvalidateAll()
	if !deleteBlobs || s.images == nil {
		return nil
	}
	for _, rel := range cur.Images {
		if err := s.images.Delete(ctx, rel); err != nil {
			s.log.WithContext(ctx).Warn("image delete failed",
				zap.String("kind", string(kind)),
				zap.Int64("id", id),
				zap.String("path", rel),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *recordService) AttachImage(ctx context.Context, kind model.Kind, id int64, img Image) (*model.Record, error) {
	cur, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if len(img.Data) == 0 {
		return nil, validationf("image file is empty")
	}
	rel, err := s.saveImage(ctx, cur.ModelNo, img)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}
	next := cur.Clone()
	next.Images = append(next.Images, rel)
	if err := s.records.Update(ctx, &next); err != nil {
		_ = s.images.Delete(ctx, rel)
		return nil, translate(err, fmt.Sprintf("%s %d", kind, id))
	}
	s.cache.InvalidateAll()
	return &next, nil
}
