package model

import (
	"errors"
	"strings"
)

// Severity is the closed, ordered severity scale of a nonconformity.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
)

// DefaultSeverity is applied when a nonconformity is reported without one.
const DefaultSeverity = SeverityMajor

var ErrInvalidSeverity = errors.New("severity must be one of Critical, Major, Minor")

// Severities lists the scale from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityMajor, SeverityMinor}
}

// ParseSeverity accepts any casing of the three severities. An empty input
// yields DefaultSeverity.
func ParseSeverity(s string) (Severity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSeverity, nil
	}
	for _, sev := range Severities() {
		if strings.EqualFold(s, string(sev)) {
			return sev, nil
		}
	}
	return "", ErrInvalidSeverity
}

// Rank orders severities for listing: Critical sorts first. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}
