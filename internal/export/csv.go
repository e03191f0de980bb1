// Package export renders record lists as CSV that the importer reads back
// with its suggested mapping.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"qcportal/internal/importer"
	"qcportal/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns returns the export header for records of kind: id, created_at,
// every structured field, then one ext:<key> column per extension key seen
// in records.
func Columns(kind model.Kind, records []model.Record) []string {
	cols := append([]string{"id", "created_at"}, model.Fields(kind)...)
	return append(cols, extColumns(records)...)
}

func extColumns(records []model.Record) []string {
	seen := map[string]bool{}
	for _, r := range records {
		for k := range r.Extension {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, importer.ExtPrefix+k)
	}
	sort.Strings(keys)
	return keys
}

// WriteCSV writes records as UTF-8 CSV with a byte-order mark so that
// spreadsheet tools detect the encoding. Missing extension keys render empty.
func WriteCSV(w io.Writer, kind model.Kind, records []model.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cols := Columns(kind, records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	fields := model.Fields(kind)
	row := make([]string, len(cols))
	for i := range records {
		r := &records[i]
		row[0] = formatID(r.ID)
		row[1] = ""
		if !r.CreatedAt.IsZero() {
			row[1] = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		for j, f := range fields {
			v, err := r.Get(f)
			if err != nil {
				return err
			}
			row[2+j] = v
		}
		for j, c := range cols[2+len(fields):] {
			row[2+len(fields)+j] = r.Extension.Get(c[len(importer.ExtPrefix):])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
