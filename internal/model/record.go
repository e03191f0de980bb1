package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind selects one of the two record tables.
type Kind string

const (
	KindFirstPiece    Kind = "first_piece"
	KindNonconformity Kind = "nonconformity"
)

var (
	ErrUnknownKind  = errors.New("unknown record kind")
	ErrUnknownField = errors.New("unknown field")
)

// Kinds lists every record kind.
func Kinds() []Kind {
	return []Kind{KindFirstPiece, KindNonconformity}
}

// ParseKind accepts the canonical kind names plus the short aliases used by the UI.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first_piece", "first-piece", "firstpiece", "fp", "fpa":
		return KindFirstPiece, nil
	case "nonconformity", "nonconformities", "nc":
		return KindNonconformity, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Record is a first-piece inspection result or a nonconformity report.
// Both kinds share the common columns; the variant columns of the other kind
// stay empty. Fields not promoted to columns live in Extension.
type Record struct {
	ID   int64 `json:"id"`
	Kind Kind  `json:"kind"`
	// CreatedAt is zero for legacy rows that were stored without a timestamp.
	CreatedAt time.Time `json:"created_at"`
	ModelNo   string    `json:"model_no"`
	Reporter  string    `json:"reporter"`
	// EventDate is the top-level alternate date (YYYY-MM-DD) set by imports.
	EventDate string `json:"event_date,omitempty"`

	Version          string `json:"version,omitempty"`
	SerialNo         string `json:"serial_no,omitempty"`
	MO               string `json:"mo,omitempty"`
	Line             string `json:"line,omitempty"`
	Station          string `json:"station,omitempty"`
	Shift            string `json:"shift,omitempty"`
	CustomerSupplier string `json:"customer_supplier,omitempty"`

	// First piece.
	Status      string `json:"status,omitempty"`
	ReviewNotes string `json:"review_notes,omitempty"`

	// Nonconformity.
	PO             string   `json:"po,omitempty"`
	Department     string   `json:"department,omitempty"`
	UnitHead       string   `json:"unit_head,omitempty"`
	Responsibility string   `json:"responsibility,omitempty"`
	Source         string   `json:"source,omitempty"`
	Category       string   `json:"category,omitempty"`
	DefectiveItem  string   `json:"defective_item,omitempty"`
	Outflow        string   `json:"outflow,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	Description    string   `json:"description,omitempty"`
	DefectiveQty   float64  `json:"defective_qty,omitempty"`
	InspectionQty  float64  `json:"inspection_qty,omitempty"`
	LotQty         float64  `json:"lot_qty,omitempty"`

	Images    ImageRefs `json:"images"`
	Extension Extension `json:"extension"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Images = append(ImageRefs{}, r.Images...)
	out.Extension = r.Extension.Clone()
	return out
}

type field struct {
	name  string
	kinds []Kind
	get   func(r *Record) string
	set   func(r *Record, v string) error
	text  bool
}

func textField(name string, ref func(r *Record) *string, kinds ...Kind) field {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	return field{
		name:  name,
		kinds: kinds,
		get:   func(r *Record) string { return *ref(r) },
		set:   func(r *Record, v string) error { *ref(r) = strings.TrimSpace(v); return nil },
		text:  true,
	}
}

func qtyField(name string, ref func(r *Record) *float64) field {
	return field{
		name:  name,
		kinds: []Kind{KindNonconformity},
		get:   func(r *Record) string { return strconv.FormatFloat(*ref(r), 'f', -1, 64) },
		set: func(r *Record, v string) error {
			v = strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
			if v == "" {
				*ref(r) = 0
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: not a number: %q", name, v)
			}
			*ref(r) = f
			return nil
		},
	}
}

// fields is the ordered structured schema. Export columns and import mapping
// targets use these names.
var fields = []field{
	textField("model_no", func(r *Record) *string { return &r.ModelNo }),
	textField("reporter", func(r *Record) *string { return &r.Reporter }),
	{
		name:  "event_date",
		kinds: Kinds(),
		get:   func(r *Record) string { return r.EventDate },
		set: func(r *Record, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				r.EventDate = ""
				return nil
			}
			t, err := ParseDate(v)
			if err != nil {
				return err
			}
			r.EventDate = FormatDate(t)
			return nil
		},
	},
	textField("version", func(r *Record) *string { return &r.Version }),
	textField("serial_no", func(r *Record) *string { return &r.SerialNo }),
	textField("mo", func(r *Record) *string { return &r.MO }),
	textField("line", func(r *Record) *string { return &r.Line }),
	textField("station", func(r *Record) *string { return &r.Station }),
	textField("shift", func(r *Record) *string { return &r.Shift }),
	textField("customer_supplier", func(r *Record) *string { return &r.CustomerSupplier }),
	textField("status", func(r *Record) *string { return &r.Status }, KindFirstPiece),
	textField("review_notes", func(r *Record) *string { return &r.ReviewNotes }, KindFirstPiece),
	textField("po", func(r *Record) *string { return &r.PO }, KindNonconformity),
	textField("department", func(r *Record) *string { return &r.Department }, KindNonconformity),
	textField("unit_head", func(r *Record) *string { return &r.UnitHead }, KindNonconformity),
	textField("responsibility", func(r *Record) *string { return &r.Responsibility }, KindNonconformity),
	textField("source", func(r *Record) *string { return &r.Source }, KindNonconformity),
	textField("category", func(r *Record) *string { return &r.Category }, KindNonconformity),
	textField("defective_item", func(r *Record) *string { return &r.DefectiveItem }, KindNonconformity),
	textField("outflow", func(r *Record) *string { return &r.Outflow }, KindNonconformity),
	{
		name:  "severity",
		kinds: []Kind{KindNonconformity},
		get:   func(r *Record) string { return string(r.Severity) },
		set: func(r *Record, v string) error {
			sev, err := ParseSeverity(v)
			if err != nil {
				return err
			}
			r.Severity = sev
			return nil
		},
		text: true,
	},
	textField("description", func(r *Record) *string { return &r.Description }, KindNonconformity),
	qtyField("defective_qty", func(r *Record) *float64 { return &r.DefectiveQty }),
	qtyField("inspection_qty", func(r *Record) *float64 { return &r.InspectionQty }),
	qtyField("lot_qty", func(r *Record) *float64 { return &r.LotQty }),
	{
		name:  "images",
		kinds: Kinds(),
		get:   func(r *Record) string { return strings.Join(r.Images, ";") },
		set: func(r *Record, v string) error {
			r.Images = ImageRefs{}
			for _, p := range strings.Split(v, ";") {
				if p = strings.TrimSpace(p); p != "" {
					r.Images = append(r.Images, p)
				}
			}
			return nil
		},
	},
}

func lookupField(kind Kind, name string) (field, bool) {
	for _, f := range fields {
		if f.name == name && f.appliesTo(kind) {
			return f, true
		}
	}
	return field{}, false
}

func (f field) appliesTo(kind Kind) bool {
	for _, k := range f.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Fields returns the structured field names of kind in schema order.
func Fields(kind Kind) []string {
	var out []string
	for _, f := range fields {
		if f.appliesTo(kind) {
			out = append(out, f.name)
		}
	}
	return out
}

// TextFields returns the structured fields searched by the free-text predicate.
func TextFields(kind Kind) []string {
	var out []string
	for _, f := range fields {
		if f.text && f.appliesTo(kind) {
			out = append(out, f.name)
		}
	}
	return out
}

// IsField reports whether name is a structured field of kind.
func IsField(kind Kind, name string) bool {
	_, ok := lookupField(kind, name)
	return ok
}

// Get returns the string form of a structured field.
func (r *Record) Get(name string) (string, error) {
	f, ok := lookupField(r.Kind, name)
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, r.Kind, name)
	}
	return f.get(r), nil
}

// Set parses v into the structured field name.
func (r *Record) Set(name, v string) error {
	f, ok := lookupField(r.Kind, name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, r.Kind, name)
	}
	return f.set(r, v)
}

// Apply sets every entry of values, stopping at the first error.
func (r *Record) Apply(values map[string]string) error {
	for _, name := range Fields(r.Kind) {
		v, ok := values[name]
		if !ok {
			continue
		}
		if err := r.Set(name, v); err != nil {
			return err
		}
	}
	for name := range values {
		if !IsField(r.Kind, name) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, r.Kind, name)
		}
	}
	return nil
}

// CustomerKeys are the extension keys holding a customer/supplier value on
// sheets that do not use the structured column.
var CustomerKeys = []string{"customer_supplier", "customer", "supplier", "Customer", "CustomerSupplier"}

// Customers returns the non-empty customer values of r: the structured
// column first, then any extension customer keys.
func (r *Record) Customers() []string {
	var out []string
	if r.CustomerSupplier != "" {
		out = append(out, r.CustomerSupplier)
	}
	for _, k := range CustomerKeys {
		if v := strings.TrimSpace(r.Extension.Get(k)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
