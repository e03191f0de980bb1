package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qcportal/internal/model"
)

// ErrInvalidState is returned when an operation is called out of order.
var ErrInvalidState = errors.New("invalid import state")

// State is a step of the import state machine.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateMapped
	StateImported
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateMapped:
		return "mapped"
	case StateImported:
		return "imported"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateIdle, StateLoaded, StateMapped, StateImported} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown import state %q", b)
}

// Inserter writes one record. RecordService.Importer provides one.
type Inserter interface {
	Insert(ctx context.Context, rec *model.Record) (*model.Record, error)
}

// Preview describes a loaded file without exposing every row.
type Preview struct {
	Filename  string     `json:"filename"`
	Source    string     `json:"source"`
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// RowError reports a skipped row. Row is the 1-based line of the row in the
// file, or its row number in a sheet.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result summarizes a commit.
type Result struct {
	Kind     model.Kind `json:"kind"`
	Total    int        `json:"total"`
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// Pipeline walks one file through Idle, Loaded, Mapped and Imported.
// A failed step leaves the state unchanged so the caller may retry it.
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	state       State
	filename    string
	table       *Table
	preview     *Preview
	kind        model.Kind
	mapping     Mapping
	result      *Result
	previewRows int
	now         func() time.Time
}

// New returns an idle pipeline whose previews hold at most previewRows rows.
func New(previewRows int) *Pipeline {
	return &Pipeline{previewRows: previewRows, now: time.Now}
}

func (p *Pipeline) State() State { return p.state }

func (p *Pipeline) expect(op string, allowed ...State) error {
	for _, s := range allowed {
		if p.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, p.state)
}

// Load parses the file. It is only valid from Idle.
func (p *Pipeline) Load(data []byte, filename string) (*Preview, error) {
	if err := p.expect("load", StateIdle); err != nil {
		return nil, err
	}
	t, err := ReadTable(data, filename)
	if err != nil {
		return nil, err
	}
	p.table = t
	p.filename = filename
	p.state = StateLoaded
	return p.Preview(), nil
}

// Preview returns the loaded file's headers and first rows, or nil when idle.
func (p *Pipeline) Preview() *Preview {
	if p.preview != nil {
		return p.preview
	}
	if p.table == nil {
		return nil
	}
	return &Preview{
		Filename:  p.filename,
		Source:    p.table.Source,
		Headers:   p.table.Headers,
		Rows:      p.table.Preview(p.previewRows),
		TotalRows: len(p.table.Rows),
	}
}

// Suggest proposes a mapping for the loaded headers.
func (p *Pipeline) Suggest(kind model.Kind, aliases map[string][]string) (Mapping, error) {
	if err := p.expect("suggest a mapping", StateLoaded, StateMapped); err != nil {
		return nil, err
	}
	return Suggest(kind, p.table.Headers, aliases), nil
}

// Map selects the target kind and column mapping. It may be repeated until commit.
func (p *Pipeline) Map(kind model.Kind, m Mapping) error {
	if err := p.expect("map", StateLoaded, StateMapped); err != nil {
		return err
	}
	if err := m.Validate(kind, p.table.Headers); err != nil {
		return err
	}
	p.kind = kind
	p.mapping = make(Mapping, len(m))
	for k, v := range m {
		p.mapping[k] = v
	}
	p.state = StateMapped
	return nil
}

// Mapping returns the active kind and mapping.
func (p *Pipeline) Mapping() (model.Kind, Mapping) {
	return p.kind, p.mapping
}

// Commit inserts every row through ins. Rows that fail to normalize or insert
// are skipped and reported; earlier rows stay written. The parsed rows are
// released afterwards; only the preview and the result are kept.
func (p *Pipeline) Commit(ctx context.Context, ins Inserter) (*Result, error) {
	if err := p.expect("commit", StateMapped); err != nil {
		return nil, err
	}
	now := p.now()
	res := &Result{Kind: p.kind, Total: len(p.table.Rows), Errors: []RowError{}}
	for i, row := range p.table.Rows {
		rec, err := BuildRecord(p.kind, p.table.Headers, row, p.mapping, now)
		if err == nil {
			_, err = ins.Insert(ctx, rec)
		}
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Row: p.table.Lines[i], Message: err.Error()})
			continue
		}
		res.Imported++
	}
	p.result = res
	p.state = StateImported
	prev := p.Preview()
	prev.Rows = append([][]string(nil), prev.Rows...)
	p.preview = prev
	p.table = nil
	return res, nil
}

// Result returns the outcome of the last commit.
func (p *Pipeline) Result() *Result { return p.result }

// Close drops the file and returns to Idle.
func (p *Pipeline) Close() {
	*p = Pipeline{previewRows: p.previewRows, now: p.now}
}

// BuildRecord turns one source row into a record of kind. An empty or
// missing event date becomes the date of now.
func BuildRecord(kind model.Kind, headers, row []string, m Mapping, now time.Time) (*model.Record, error) {
	rec := &model.Record{Kind: kind, Extension: model.Extension{}}
	values := map[string]string{}
	for i, h := range headers {
		v := ""
		if i < len(row) {
			v = strings.TrimSpace(row[i])
		}
		t := resolve(kind, h, m[h])
		switch {
		case t.skip:
		case t.field != "":
			values[t.field] = v
		case v != "":
			rec.Extension[t.ext] = v
		}
	}
	if err := rec.Apply(values); err != nil {
		return nil, err
	}
	for _, k := range model.ExtensionDateKeys {
		if v, ok := rec.Extension.Lookup(k); ok {
			if _, err := model.ParseDate(v); err != nil {
				return nil, fmt.Errorf("%s: %w: %q", k, err, v)
			}
		}
	}
	if rec.ModelNo == "" {
		return nil, errors.New("model_no is empty")
	}
	if rec.EventDate == "" {
		rec.EventDate = model.FormatDate(now)
	}
	if kind == model.KindNonconformity && rec.Severity == "" {
		rec.Severity = model.DefaultSeverity
	}
	return rec, nil
}
