package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetGet(t *testing.T) {
	r := &Record{Kind: KindNonconformity}

	require.NoError(t, r.Set("defective_qty", "1,200"))
	assert.Equal(t, 1200.0, r.DefectiveQty)

	got, err := r.Get("defective_qty")
	require.NoError(t, err)
	assert.Equal(t, "1200", got)

	require.NoError(t, r.Set("severity", "minor"))
	assert.Equal(t, SeverityMinor, r.Severity)

	require.NoError(t, r.Set("event_date", "2024/3/7"))
	assert.Equal(t, "2024-03-07", r.EventDate)

	require.NoError(t, r.Set("images", "a/1.jpg; a/2.jpg;"))
	assert.Equal(t, ImageRefs{"a/1.jpg", "a/2.jpg"}, r.Images)

	assert.ErrorIs(t, r.Set("status", "OK"), ErrUnknownField)
	assert.Error(t, r.Set("lot_qty", "many"))
	assert.ErrorIs(t, r.Set("severity", "bad"), ErrInvalidSeverity)
}

func TestRecord_Apply(t *testing.T) {
	r := &Record{Kind: KindFirstPiece}
	err := r.Apply(map[string]string{"model_no": " M1 ", "status": "NG", "serial_no": "SN1"})
	require.NoError(t, err)
	assert.Equal(t, "M1", r.ModelNo)
	assert.Equal(t, "NG", r.Status)

	err = r.Apply(map[string]string{"severity": "Major"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFields(t *testing.T) {
	fp := Fields(KindFirstPiece)
	nc := Fields(KindNonconformity)

	assert.Contains(t, fp, "status")
	assert.NotContains(t, fp, "severity")
	assert.Contains(t, nc, "severity")
	assert.Equal(t, "model_no", nc[0])
	assert.Contains(t, TextFields(KindNonconformity), "description")
	assert.NotContains(t, TextFields(KindNonconformity), "lot_qty")
}

func TestRecord_Customers(t *testing.T) {
	r := &Record{CustomerSupplier: "ACME", Extension: Extension{"customer": "Globex", "other": "x"}}
	assert.Equal(t, []string{"ACME", "Globex"}, r.Customers())
}

func TestRecord_ResolveEventDate(t *testing.T) {
	created := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		rec    Record
		want   string
		wantOK bool
	}{
		{
			name:   "extension date wins",
			rec:    Record{Extension: Extension{"date": "2024/01/15"}, EventDate: "2024-02-01", CreatedAt: created},
			want:   "2024-01-15",
			wantOK: true,
		},
		{
			name:   "unparseable extension date falls through",
			rec:    Record{Extension: Extension{"date": "soon"}, EventDate: "2024-02-01"},
			want:   "2024-02-01",
			wantOK: true,
		},
		{
			name:   "created at",
			rec:    Record{CreatedAt: created},
			want:   "2024-05-01",
			wantOK: true,
		},
		{
			name: "undated",
			rec:  Record{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rec.ResolveEventDate()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, FormatDate(got))
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-01-02", "2024/1/2", "01/02/2024", "02-Jan-2024", "20240102", "2024-01-02T08:00:00Z", "45293"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2024-01-02", FormatDate(got), in)
	}

	_, err := ParseDate("next tuesday")
	assert.ErrorIs(t, err, ErrUnparseableDate)
	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrUnparseableDate)
}

func TestExtension(t *testing.T) {
	e := Extension{"b": "2", "a": "1"}
	assert.Equal(t, []string{"a", "b"}, e.Keys())

	merged := e.Merge(Extension{"b": "3", "c": "4"})
	assert.Equal(t, Extension{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, "2", e.Get("b"), "merge must not mutate the receiver")

	v, err := merged.Value()
	require.NoError(t, err)

	var back Extension
	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, merged, back)

	require.NoError(t, back.Scan(nil))
	assert.Empty(t, back)
	assert.Error(t, back.Scan(42))
	assert.Equal(t, "{}", Extension(nil).JSON())
}
