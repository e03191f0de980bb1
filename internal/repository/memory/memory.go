// Package memory provides process-local implementations of the repository
// interfaces. They share one mutex-guarded state so that model and record
// operations observe each other exactly like the SQL tables do.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"qcportal/internal/model"
	"qcportal/internal/repository"
)

type state struct {
	mu      sync.RWMutex
	models  map[string]model.Model
	records map[model.Kind]map[int64]model.Record
	nextID  map[model.Kind]int64
}

// Store owns the in-memory tables.
type Store struct {
	st *state
}

// New returns an empty store.
func New() *Store {
	st := &state{
		models:  map[string]model.Model{},
		records: map[model.Kind]map[int64]model.Record{},
		nextID:  map[model.Kind]int64{},
	}
	for _, k := range model.Kinds() {
		st.records[k] = map[int64]model.Record{}
	}
	return &Store{st: st}
}

// Models returns the model registry view of the store.
func (s *Store) Models() *ModelRepo { return &ModelRepo{st: s.st} }

// Records returns the record view of the store.
func (s *Store) Records() *RecordRepo { return &RecordRepo{st: s.st} }

// ModelRepo implements repository.ModelRepository.
type ModelRepo struct {
	st *state
}

var _ repository.ModelRepository = (*ModelRepo)(nil)

func (r *ModelRepo) Upsert(_ context.Context, m *model.Model) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.models[m.ModelNo] = model.Model{
		ModelNo:          m.ModelNo,
		DisplayName:      m.DisplayName,
		CustomerSupplier: m.CustomerSupplier,
		Folder:           m.Folder,
	}
	return nil
}

func (r *ModelRepo) Ensure(_ context.Context, modelNo string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.ensure(modelNo)
	return nil
}

func (r *ModelRepo) FindByNo(_ context.Context, modelNo string) (*model.Model, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	m, ok := r.st.models[modelNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (r *ModelRepo) List(_ context.Context) ([]model.Model, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	items := make([]model.Model, 0, len(r.st.models))
	for _, m := range r.st.models {
		items = append(items, m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ModelNo < items[j].ModelNo })
	return items, nil
}

func (r *ModelRepo) Rename(_ context.Context, oldNo string, target model.Model) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.models[oldNo]; !ok {
		return 0, sql.ErrNoRows
	}
	target.Root = ""
	r.st.models[target.ModelNo] = target
	moved := 0
	for _, table := range r.st.records {
		for id, rec := range table {
			if rec.ModelNo == oldNo {
				rec.ModelNo = target.ModelNo
				table[id] = rec
				moved++
			}
		}
	}
	if oldNo != target.ModelNo {
		delete(r.st.models, oldNo)
	}
	return moved, nil
}

func (r *ModelRepo) Delete(_ context.Context, modelNo string, cascade bool) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.models[modelNo]; !ok {
		return 0, sql.ErrNoRows
	}
	if !cascade && r.st.dependents(modelNo) > 0 {
		return 0, repository.ErrHasDependents
	}
	deleted := 0
	for _, table := range r.st.records {
		for id, rec := range table {
			if rec.ModelNo == modelNo {
				delete(table, id)
				deleted++
			}
		}
	}
	delete(r.st.models, modelNo)
	return deleted, nil
}

func (r *ModelRepo) CountDependents(_ context.Context, modelNo string) (int, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return r.st.dependents(modelNo), nil
}

func (st *state) ensure(modelNo string) {
	if _, ok := st.models[modelNo]; !ok {
		st.models[modelNo] = model.Model{ModelNo: modelNo}
	}
}

func (st *state) dependents(modelNo string) int {
	n := 0
	for _, table := range st.records {
		for _, rec := range table {
			if rec.ModelNo == modelNo {
				n++
			}
		}
	}
	return n
}

// RecordRepo implements repository.RecordRepository.
type RecordRepo struct {
	st *state
}

var _ repository.RecordRepository = (*RecordRepo)(nil)

func (r *RecordRepo) table(kind model.Kind) (map[int64]model.Record, error) {
	t, ok := r.st.records[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	return t, nil
}

func (r *RecordRepo) Create(_ context.Context, rec *model.Record) (*model.Record, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	table, err := r.table(rec.Kind)
	if err != nil {
		return nil, err
	}
	r.st.ensure(rec.ModelNo)
	r.st.nextID[rec.Kind]++
	out := rec.Clone()
	out.ID = r.st.nextID[rec.Kind]
	table[out.ID] = out.Clone()
	return &out, nil
}

func (r *RecordRepo) FindByID(_ context.Context, kind model.Kind, id int64) (*model.Record, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	table, err := r.table(kind)
	if err != nil {
		return nil, err
	}
	rec, ok := table[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := rec.Clone()
	return &out, nil
}

func (r *RecordRepo) Update(_ context.Context, rec *model.Record) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	table, err := r.table(rec.Kind)
	if err != nil {
		return err
	}
	cur, ok := table[rec.ID]
	if !ok {
		return sql.ErrNoRows
	}
	r.st.ensure(rec.ModelNo)
	next := rec.Clone()
	next.CreatedAt = cur.CreatedAt
	table[rec.ID] = next
	return nil
}

func (r *RecordRepo) Delete(_ context.Context, kind model.Kind, id int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	table, err := r.table(kind)
	if err != nil {
		return err
	}
	if _, ok := table[id]; !ok {
		return sql.ErrNoRows
	}
	delete(table, id)
	return nil
}

func (r *RecordRepo) Find(_ context.Context, q repository.RecordQuery) ([]model.Record, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	table, err := r.table(q.Kind)
	if err != nil {
		return nil, err
	}
	items := make([]model.Record, 0)
	for _, rec := range table {
		if q.ModelNoExact != "" && rec.ModelNo != q.ModelNoExact {
			continue
		}
		if !repository.ContainsFold(rec.ModelNo, q.ModelNo) ||
			!repository.ContainsFold(rec.Version, q.Version) ||
			!repository.ContainsFold(rec.SerialNo, q.SerialNo) ||
			!repository.ContainsFold(rec.MO, q.MO) {
			continue
		}
		items = append(items, rec.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *RecordRepo) Count(_ context.Context, kind model.Kind) (int, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	table, err := r.table(kind)
	if err != nil {
		return 0, err
	}
	return len(table), nil
}

func (r *RecordRepo) ReplaceImagePrefix(_ context.Context, modelNo, oldPrefix, newPrefix string) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	changed := 0
	for _, table := range r.st.records {
		for id, rec := range table {
			if rec.ModelNo != modelNo {
				continue
			}
			if next, ok := repository.RewriteImages(rec.Images, oldPrefix, newPrefix); ok {
				rec.Images = next
				table[id] = rec
				changed++
			}
		}
	}
	return changed, nil
}
