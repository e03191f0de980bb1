package model

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the normalized event date format.
const DateLayout = "2006-01-02"

var ErrUnparseableDate = errors.New("unparseable date")

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"20060102",
}

// ExtensionDateKeys are the extension keys that carry an explicit event date,
// in priority order.
var ExtensionDateKeys = []string{"date", "event_date", "Date", "report_date", "日期"}

// ParseDate parses s with the fixed layout list. Spreadsheet serial day
// numbers (e.g. 45292) are also accepted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return base.AddDate(0, 0, int(math.Floor(serial))), nil
	}
	return time.Time{}, ErrUnparseableDate
}

// FormatDate renders the date portion of t.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveEventDate picks the date a record is filed under: an extension date
// key, then the top-level EventDate, then the day of CreatedAt. ok is false
// for undated records.
func (r *Record) ResolveEventDate() (date time.Time, ok bool) {
	for _, k := range ExtensionDateKeys {
		if v, present := r.Extension.Lookup(k); present {
			if t, err := ParseDate(v); err == nil {
				return DateOf(t), true
			}
		}
	}
	if r.EventDate != "" {
		if t, err := ParseDate(r.EventDate); err == nil {
			return DateOf(t), true
		}
	}
	if !r.CreatedAt.IsZero() {
		return DateOf(r.CreatedAt), true
	}
	return time.Time{}, false
}
