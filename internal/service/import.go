package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"qcportal/internal/importer"
	"qcportal/internal/logger"
	"qcportal/internal/model"
	"qcportal/internal/otel"
)

// ErrSessionNotFound is returned for an unknown or closed import session.
var ErrSessionNotFound = fmt.Errorf("%w: import session", ErrNotFound)

// ImportSession is the client-visible state of one import.
type ImportSession struct {
	ID         string            `json:"id"`
	State      importer.State    `json:"state"`
	Kind       model.Kind        `json:"kind,omitempty"`
	Preview    *importer.Preview `json:"preview,omitempty"`
	Mapping    importer.Mapping  `json:"mapping,omitempty"`
	Suggestion importer.Mapping  `json:"suggestion,omitempty"`
	Result     *importer.Result  `json:"result,omitempty"`
}

// ImportService drives import pipelines held server-side between requests.
type ImportService interface {
	// Load reads a file into a new session. When kind is set the session also
	// carries a suggested mapping for it. Unreadable files create no session.
	Load(ctx context.Context, data []byte, filename string, kind model.Kind) (*ImportSession, error)

	Get(ctx context.Context, id string) (*ImportSession, error)

	// Map sets the target kind and column mapping. A nil mapping accepts the suggestion.
	Map(ctx context.Context, id string, kind model.Kind, m importer.Mapping) (*ImportSession, error)

	// Commit inserts every row through the record store. Only the preview
	// and the result are kept afterwards.
	Commit(ctx context.Context, id string) (*ImportSession, error)

	// Close discards the session.
	Close(ctx context.Context, id string) error
}

type importSession struct {
	mu       sync.Mutex
	id       string
	pipeline *importer.Pipeline
	suggest  importer.Mapping
	// used is guarded by importService.mu.
	used time.Time
}

// DefaultSessionTTL is how long an untouched import session is kept.
const DefaultSessionTTL = time.Hour

type importService struct {
	records     importer.Inserter
	aliases     map[string][]string
	previewRows int
	ttl         time.Duration
	now         func() time.Time
	log         *logger.Logger
	rows        *prometheus.CounterVec

	mu       sync.Mutex
	sessions map[string]*importSession
}

// ImportOption configures an ImportService.
type ImportOption func(*importService)

// WithSessionTTL drops sessions not used for ttl. Zero keeps them until Close.
func WithSessionTTL(ttl time.Duration) ImportOption {
	return func(s *importService) { s.ttl = ttl }
}

// WithImportClock replaces time.Now for session expiry.
func WithImportClock(now func() time.Time) ImportOption {
	return func(s *importService) { s.now = now }
}

// NewImportService constructs an ImportService inserting through records.
// Row outcomes are counted on reg when it is not nil.
func NewImportService(records importer.Inserter, aliases map[string][]string, previewRows int, log *logger.Logger, reg prometheus.Registerer, opts ...ImportOption) (ImportService, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &importService{
		records:     records,
		aliases:     aliases,
		previewRows: previewRows,
		ttl:         DefaultSessionTTL,
		now:         time.Now,
		log:         log.Named("import"),
		sessions:    map[string]*importSession{},
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qc_import_rows_total",
				Help: "Rows processed by import commits, by outcome.",
			},
			[]string{"kind", "outcome"},
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if reg != nil {
		if err := reg.Register(s.rows); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// expire drops idle sessions. It must be called with s.mu held.
func (s *importService) expire(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.used) > s.ttl {
			delete(s.sessions, id)
			s.log.Info("import session expired", zap.String("import_id", id))
		}
	}
}

func (s *importService) session(id string) (*importSession, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(now)
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.used = now
	return sess, nil
}

// view must be called with sess.mu held.
func (sess *importSession) view() *ImportSession {
	kind, m := sess.pipeline.Mapping()
	return &ImportSession{
		ID:         sess.id,
		State:      sess.pipeline.State(),
		Kind:       kind,
		Preview:    sess.pipeline.Preview(),
		Mapping:    m,
		Suggestion: sess.suggest,
		Result:     sess.pipeline.Result(),
	}
}

func (s *importService) Load(ctx context.Context, data []byte, filename string, kind model.Kind) (*ImportSession, error) {
	if kind != "" {
		if err := checkKind(kind); err != nil {
			return nil, err
		}
	}
	p := importer.New(s.previewRows)
	if _, err := p.Load(data, filename); err != nil {
		s.log.WithContext(ctx).Info("import file rejected", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}
	sess := &importSession{id: uuid.NewString(), pipeline: p}
	if kind != "" {
		m, err := p.Suggest(kind, s.aliases)
		if err != nil {
			return nil, err
		}
		sess.suggest = m
	}

	now := s.now()
	s.mu.Lock()
	s.expire(now)
	sess.used = now
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("import file loaded",
		zap.String("import_id", sess.id),
		zap.String("filename", filename),
		zap.Int("rows", sess.pipeline.Preview().TotalRows),
	)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *importService) Get(_ context.Context, id string) (*ImportSession, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *importService) Map(_ context.Context, id string, kind model.Kind, m importer.Mapping) (*ImportSession, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if m == nil {
		if m, err = sess.pipeline.Suggest(kind, s.aliases); err != nil {
			return nil, err
		}
		sess.suggest = m
	}
	if err := sess.pipeline.Map(kind, m); err != nil {
		return nil, err
	}
	return sess.view(), nil
}

func (s *importService) Commit(ctx context.Context, id string) (*ImportSession, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx, span := otel.Start(ctx, "import.commit", trace.WithAttributes(attribute.String("import_id", id)))
	defer span.End()
	res, err := sess.pipeline.Commit(ctx, s.records)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("imported", res.Imported), attribute.Int("skipped", res.Skipped))

	kind := string(res.Kind)
	s.rows.WithLabelValues(kind, "imported").Add(float64(res.Imported))
	s.rows.WithLabelValues(kind, "skipped").Add(float64(res.Skipped))
	log := s.log.WithContext(ctx).With(zap.String("import_id", id), zap.String("kind", kind))
	for _, re := range res.Errors {
		log.Warn("import row skipped", zap.Int("row", re.Row), zap.String("reason", re.Message))
	}
	log.Info("import committed",
		zap.Int("total", res.Total),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
	)
	return sess.view(), nil
}

func (s *importService) Close(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	sess.pipeline.Close()
	sess.mu.Unlock()
	return nil
}

// IsImportInputError reports errors caused by the uploaded file or mapping,
// after which the session stays at its previous step.
func IsImportInputError(err error) bool {
	return errors.Is(err, importer.ErrUnreadableFile) ||
		errors.Is(err, importer.ErrIncompleteMapping) ||
		errors.Is(err, importer.ErrInvalidMapping) ||
		errors.Is(err, importer.ErrInvalidState)
}
