package importer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"qcportal/internal/model"
)

var (
	// ErrIncompleteMapping is returned when a required field has no source column.
	ErrIncompleteMapping = errors.New("incomplete mapping")
	// ErrInvalidMapping is returned for mappings naming unknown columns or
	// assigning one structured field twice.
	ErrInvalidMapping = errors.New("invalid mapping")
)

const (
	// SkipTarget drops a source column.
	SkipTarget = "-"
	// ExtPrefix marks an extension-map target, and extension columns on export.
	ExtPrefix = "ext:"
)

// readOnlyColumns are exported but never written on import.
var readOnlyColumns = map[string]bool{"id": true, "created_at": true}

// Mapping assigns source column headers to targets: a structured field
// name, ExtPrefix+key, any other text (an extension key), or SkipTarget.
// Headers absent from the mapping go to the extension map under their own name.
type Mapping map[string]string

// target is a resolved mapping destination.
type target struct {
	field string
	ext   string
	skip  bool
}

func resolve(kind model.Kind, header, to string) target {
	to = strings.TrimSpace(to)
	switch {
	case to == "":
		if readOnlyColumns[header] {
			return target{skip: true}
		}
		return target{ext: header}
	case to == SkipTarget, readOnlyColumns[to]:
		return target{skip: true}
	case strings.HasPrefix(to, ExtPrefix):
		key := strings.TrimSpace(strings.TrimPrefix(to, ExtPrefix))
		if key == "" {
			return target{skip: true}
		}
		return target{ext: key}
	case model.IsField(kind, to):
		return target{field: to}
	default:
		return target{ext: to}
	}
}

// RequiredFields lists the structured fields of kind that must be mapped.
// Each inner slice is satisfied by any one of its members.
func RequiredFields(kind model.Kind) [][]string {
	if kind == model.KindNonconformity {
		return [][]string{{"model_no"}, {"category", "description"}}
	}
	return [][]string{{"model_no"}}
}

// Validate checks m against the headers of a loaded table.
func (m Mapping) Validate(kind model.Kind, headers []string) error {
	known := map[string]bool{}
	for _, h := range headers {
		known[h] = true
	}
	assigned := map[string]string{}
	for _, src := range m.sources() {
		if !known[src] {
			return fmt.Errorf("%w: column %q is not in the file", ErrInvalidMapping, src)
		}
		t := resolve(kind, src, m[src])
		if t.field == "" {
			continue
		}
		if prev, dup := assigned[t.field]; dup {
			return fmt.Errorf("%w: %s is mapped from both %q and %q", ErrInvalidMapping, t.field, prev, src)
		}
		assigned[t.field] = src
	}
	var missing []string
	for _, group := range RequiredFields(kind) {
		ok := false
		for _, f := range group {
			if _, hit := assigned[f]; hit {
				ok = true
				break
			}
		}
		if !ok {
			missing = append(missing, strings.Join(group, " or "))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not mapped", ErrIncompleteMapping, strings.Join(missing, ", "))
	}
	return nil
}

func (m Mapping) sources() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Suggest proposes a mapping for headers: exact structured field names
// first, then the configured aliases. Exported extension columns map back to
// their key and read-only columns are skipped. Each field is proposed once.
func Suggest(kind model.Kind, headers []string, aliases map[string][]string) Mapping {
	byName := map[string]string{}
	for _, f := range model.Fields(kind) {
		byName[normalizeName(f)] = f
	}
	fieldsWithAliases := make([]string, 0, len(aliases))
	for field := range aliases {
		fieldsWithAliases = append(fieldsWithAliases, field)
	}
	sort.Strings(fieldsWithAliases)
	byAlias := map[string]string{}
	for _, field := range fieldsWithAliases {
		if !model.IsField(kind, field) {
			continue
		}
		for _, n := range aliases[field] {
			if _, taken := byAlias[normalizeName(n)]; !taken {
				byAlias[normalizeName(n)] = field
			}
		}
	}

	out := Mapping{}
	used := map[string]bool{}
	assign := func(h, field string) {
		if field != "" && !used[field] {
			out[h] = field
			used[field] = true
		}
	}
	for _, h := range headers {
		switch {
		case readOnlyColumns[h]:
			out[h] = SkipTarget
		case strings.HasPrefix(h, ExtPrefix):
			out[h] = h
		default:
			assign(h, byName[normalizeName(h)])
		}
	}
	for _, h := range headers {
		if _, done := out[h]; done {
			continue
		}
		assign(h, byAlias[normalizeName(h)])
	}
	return out
}
