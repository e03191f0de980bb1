package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the per-deployment dropdown lists and import header aliases.
// Lists are advisory except Statuses, which bounds first-piece results.
type Vocabulary struct {
	Stations    []string `yaml:"stations" json:"stations"`
	Lines       []string `yaml:"lines" json:"lines"`
	Shifts      []string `yaml:"shifts" json:"shifts"`
	Departments []string `yaml:"departments" json:"departments"`
	Categories  []string `yaml:"categories" json:"categories"`
	Outflows    []string `yaml:"outflows" json:"outflows"`
	Statuses    []string `yaml:"statuses" json:"statuses"`
	// Aliases maps a canonical field name to spreadsheet headers that mean it.
	Aliases map[string][]string `yaml:"aliases" json:"aliases"`
}

// DefaultVocabulary returns the compiled-in lists.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Shifts:     []string{"Day", "Night"},
		Categories: []string{"Soldering", "Assembly", "Cosmetic", "Labeling", "Packaging"},
		Outflows:   []string{"None", "OQC", "Customer"},
		Statuses:   []string{"Pending", "OK", "NG"},
		Aliases: map[string][]string{
			"model_no":          {"ModelVersion", "Model", "Model No", "ModelNo", "Part Number", "model", "version"},
			"customer_supplier": {"CustomerSupplier", "Customer", "Supplier", "customer"},
			"mo":                {"MO", "Work Order", "WO"},
			"po":                {"PO", "Purchase Order"},
			"line":              {"Line"},
			"station":           {"WorkStation", "Work Station", "Station"},
			"department":        {"Department", "Dept"},
			"severity":          {"Severity", "Level"},
			"description":       {"Description", "Desc", "Defect Description"},
			"category":          {"Category", "DefectiveCategory", "Defective Category"},
			"defective_item":    {"DefectiveItem", "Defective Item"},
			"defective_qty":     {"DefectiveQty", "Defective Qty", "dq"},
			"inspection_qty":    {"InspectionQty", "Inspection Qty", "iq"},
			"lot_qty":           {"LotQty", "Lot Qty", "lq"},
			"serial_no":         {"SN", "Serial", "Serial Number"},
			"event_date":        {"Date", "Report Date", "Event Date"},
			"reporter":          {"Reporter", "Inspector"},
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Lists missing from the file keep
// their defaults; aliases are merged per field. An empty path returns the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: read %s: %w", path, err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary unmarshals YAML bytes over the defaults.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var file Vocabulary
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("vocabulary: parse: %w", err)
	}
	v := DefaultVocabulary()
	for _, pair := range []struct {
		dst *[]string
		src []string
	}{
		{&v.Stations, file.Stations},
		{&v.Lines, file.Lines},
		{&v.Shifts, file.Shifts},
		{&v.Departments, file.Departments},
		{&v.Categories, file.Categories},
		{&v.Outflows, file.Outflows},
		{&v.Statuses, file.Statuses},
	} {
		if len(pair.src) > 0 {
			*pair.dst = pair.src
		}
	}
	for field, aliases := range file.Aliases {
		v.Aliases[field] = aliases
	}
	if len(v.Statuses) == 0 {
		return nil, fmt.Errorf("vocabulary: statuses must not be empty")
	}
	return v, nil
}

// AllowsStatus reports whether s is a configured first-piece status.
func (v *Vocabulary) AllowsStatus(s string) bool {
	for _, st := range v.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// DefaultStatus is the status a first piece gets when none is reported.
func (v *Vocabulary) DefaultStatus() string {
	return v.Statuses[0]
}
