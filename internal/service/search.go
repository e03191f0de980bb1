package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"qcportal/internal/cache"
	"qcportal/internal/export"
	"qcportal/internal/logger"
	"qcportal/internal/model"
	"qcportal/internal/otel"
	"qcportal/internal/repository"
)

// Order selects the result ordering of a search.
type Order string

const (
	// OrderDefault is newest first, with nonconformities grouped by severity.
	OrderDefault  Order = ""
	OrderNewest   Order = "newest"
	OrderSeverity Order = "severity"
)

// ParseOrder accepts the query-string values of Order.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case OrderDefault, OrderNewest, OrderSeverity:
		return o, nil
	}
	return "", validationf("order must be newest or severity")
}

// SearchFilter holds every search predicate. Empty values match everything.
type SearchFilter struct {
	ModelNo  string `json:"model_no,omitempty"`
	Version  string `json:"version,omitempty"`
	SerialNo string `json:"serial_no,omitempty"`
	MO       string `json:"mo,omitempty"`
	// Text is matched against the text fields and the serialized extension map.
	Text string `json:"q,omitempty"`
	// Customer matches the customer column or a customer key of the extension map exactly.
	Customer string `json:"customer,omitempty"`
	// From and To bound the event date, inclusive. The range only applies
	// when at least one bound is set.
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
	IncludeUndated bool       `json:"include_undated,omitempty"`
	Order          Order      `json:"order,omitempty"`
	Limit          int        `json:"-"`
	Offset         int        `json:"-"`
}

func (f SearchFilter) signature(kind model.Kind) map[string]any {
	return map[string]any{"kind": kind, "filter": f}
}

// SearchHit is a record tagged with its resolved event date. Date is empty
// for undated records.
type SearchHit struct {
	model.Record
	Date string `json:"date,omitempty"`
}

// SearchResult is one page of hits and the total number of matches.
type SearchResult struct {
	Items []SearchHit `json:"data"`
	Total int         `json:"total"`
}

// SearchService answers filtered queries over the record store.
type SearchService interface {
	Search(ctx context.Context, kind model.Kind, f SearchFilter) (*SearchResult, error)

	// DistinctCustomers returns every customer value stored on records of
	// either kind, from the column and the extension map, deduplicated as
	// stored. A non-empty kind must be a valid kind.
	DistinctCustomers(ctx context.Context, kind model.Kind) ([]string, error)

	// Export writes the matches of f as CSV. Limit and Offset apply only when
	// Limit is set.
	Export(ctx context.Context, kind model.Kind, f SearchFilter, w io.Writer) (int, error)
}

// SearchLimits bounds the page size.
type SearchLimits struct {
	Default int
	Max     int
}

type searchService struct {
	records repository.RecordRepository
	cache   cache.Cache
	limits  SearchLimits
	log     *logger.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(records repository.RecordRepository, c cache.Cache, limits SearchLimits, log *logger.Logger) SearchService {
	if c == nil {
		c = cache.Noop{}
	}
	if limits.Default <= 0 {
		limits.Default = 100
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &searchService{records: records, cache: c, limits: limits, log: log.Named("search")}
}

func (s *searchService) Search(ctx context.Context, kind model.Kind, f SearchFilter) (*SearchResult, error) {
	hits, err := s.matches(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = s.limits.Default
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}
	return &SearchResult{Items: page(hits, f.Offset, limit), Total: len(hits)}, nil
}

func page(hits []SearchHit, offset, limit int) []SearchHit {
	if offset < 0 {
		offset = 0
	}
	if offset > len(hits) {
		offset = len(hits)
	}
	end := len(hits)
	if limit >= 0 && limit < end-offset {
		end = offset + limit
	}
	out := make([]SearchHit, end-offset)
	copy(out, hits[offset:end])
	return out
}

// matches returns every hit of f in result order. The list is memoized per
// filter; pagination is applied by the callers.
func (s *searchService) matches(ctx context.Context, kind model.Kind, f SearchFilter) ([]SearchHit, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if _, err := ParseOrder(string(f.Order)); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, validationf("from is after to")
	}
	key := cache.Key("search", f.signature(kind))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]SearchHit, error) {
		return s.compute(ctx, kind, f)
	})
}

func (s *searchService) compute(ctx context.Context, kind model.Kind, f SearchFilter) ([]SearchHit, error) {
	ctx, span := otel.Start(ctx, "search.compute", trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	// Structured predicates narrow the candidates in the store.
	recs, err := s.records.Find(ctx, repository.RecordQuery{
		Kind:     kind,
		ModelNo:  strings.TrimSpace(f.ModelNo),
		Version:  strings.TrimSpace(f.Version),
		SerialNo: strings.TrimSpace(f.SerialNo),
		MO:       strings.TrimSpace(f.MO),
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}

	text := strings.TrimSpace(f.Text)
	customer := strings.TrimSpace(f.Customer)
	ranged := f.From != nil || f.To != nil
	hits := make([]SearchHit, 0, len(recs))
	for i := range recs {
		r := &recs[i]
		js := r.Extension.JSON()
		if text != "" && !matchesText(r, js, text) {
			continue
		}
		if customer != "" && !matchesCustomer(r, js, customer) {
			continue
		}
		hit := SearchHit{Record: *r}
		d, dated := r.ResolveEventDate()
		if dated {
			hit.Date = model.FormatDate(d)
		}
		if ranged {
			if !dated {
				if !f.IncludeUndated {
					continue
				}
			} else if (f.From != nil && d.Before(model.DateOf(*f.From))) || (f.To != nil && d.After(model.DateOf(*f.To))) {
				continue
			}
		}
		hits = append(hits, hit)
	}
	sortHits(kind, f.Order, hits)
	s.log.WithContext(ctx).Debug("search computed",
		zap.String("kind", string(kind)),
		zap.Int("candidates", len(recs)),
		zap.Int("matches", len(hits)),
	)
	return hits, nil
}

func matchesText(r *model.Record, extJSON, text string) bool {
	for _, name := range model.TextFields(r.Kind) {
		v, _ := r.Get(name)
		if repository.ContainsFold(v, text) {
			return true
		}
	}
	return repository.ContainsFold(extJSON, text)
}

func matchesCustomer(r *model.Record, extJSON, customer string) bool {
	if strings.TrimSpace(r.CustomerSupplier) == customer {
		return true
	}
	for _, v := range extCustomers(extJSON) {
		if v == customer {
			return true
		}
	}
	return false
}

// extCustomers reads the customer keys straight from the serialized extension map.
func extCustomers(extJSON string) []string {
	var out []string
	for _, res := range gjson.GetMany(extJSON, customerPaths...) {
		if v := strings.TrimSpace(res.String()); res.Exists() && v != "" {
			out = append(out, v)
		}
	}
	return out
}

var customerPaths = func() []string {
	out := make([]string, len(model.CustomerKeys))
	for i, k := range model.CustomerKeys {
		out[i] = gjsonPath(k)
	}
	return out
}()

// gjsonPath escapes the path syntax characters of a literal key.
func gjsonPath(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`\.*?|#@!=<>%`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortHits(kind model.Kind, order Order, hits []SearchHit) {
	bySeverity := order == OrderSeverity || (order == OrderDefault && kind == model.KindNonconformity)
	sort.SliceStable(hits, func(i, j int) bool {
		if bySeverity {
			ri, rj := hits[i].Severity.Rank(), hits[j].Severity.Rank()
			if ri != rj {
				return ri < rj
			}
		}
		return hits[i].ID > hits[j].ID
	})
}

func (s *searchService) DistinctCustomers(ctx context.Context, kind model.Kind) ([]string, error) {
	if kind != "" {
		if err := checkKind(kind); err != nil {
			return nil, err
		}
	}
	return cache.Fetch(ctx, s.cache, cache.Key("customers", nil), func(ctx context.Context) ([]string, error) {
		seen := map[string]bool{}
		out := []string{}
		add := func(v string) {
			if v = strings.TrimSpace(v); v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
		for _, k := range model.Kinds() {
			recs, err := s.records.Find(ctx, repository.RecordQuery{Kind: k})
			if err != nil {
				return nil, fmt.Errorf("find %s: %w", k, err)
			}
			for i := range recs {
				add(recs[i].CustomerSupplier)
				for _, v := range extCustomers(recs[i].Extension.JSON()) {
					add(v)
				}
			}
		}
		sort.Strings(out)
		return out, nil
	})
}

func (s *searchService) Export(ctx context.Context, kind model.Kind, f SearchFilter, w io.Writer) (int, error) {
	hits, err := s.matches(ctx, kind, f)
	if err != nil {
		return 0, err
	}
	if f.Limit > 0 {
		hits = page(hits, f.Offset, f.Limit)
	}
	records := make([]model.Record, len(hits))
	for i := range hits {
		records[i] = hits[i].Record
	}
	if err := export.WriteCSV(w, kind, records); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(records), nil
}
