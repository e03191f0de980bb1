package model

import "strings"

// Model is a product model registered in the portal.
// ModelNo is the case-sensitive primary key referenced by every record.
type Model struct {
	ModelNo          string `json:"model_no"`
	DisplayName      string `json:"display_name"`
	CustomerSupplier string `json:"customer_supplier"`
	// Folder is the optional taxonomy tag; empty means unassigned.
	Folder string `json:"folder,omitempty"`
	Root   string `json:"root"`
}

// WithRoot returns a copy of m with the derived Root filled in.
func (m Model) WithRoot() Model {
	m.Root = Root(m.ModelNo)
	return m
}

// Matches reports whether text appears (case-insensitively) in the model number,
// root, display name, customer or folder. An empty text matches everything.
func (m Model) Matches(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	for _, v := range []string{m.ModelNo, Root(m.ModelNo), m.DisplayName, m.CustomerSupplier, m.Folder} {
		if strings.Contains(strings.ToLower(v), text) {
			return true
		}
	}
	return false
}

// Root derives the grouping root of a model number: the first three digits,
// a dash, then the remaining digits (190A56980 -> 190-56980). Numbers with
// fewer than four digits fall back to the digits, or the trimmed input.
func Root(modelNo string) string {
	var digits strings.Builder
	for _, r := range modelNo {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) >= 4 {
		return d[:3] + "-" + d[3:]
	}
	if d != "" {
		return d
	}
	return strings.TrimSpace(modelNo)
}
