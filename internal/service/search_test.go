package service_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcportal/internal/model"
	"qcportal/internal/service"
)

// seedUndated stores a legacy record without any date, bypassing the
// service which always stamps created_at.
func seedUndated(t *testing.T, f *fixture, r model.Record) *model.Record {
	t.Helper()
	stored, err := f.store.Records().Create(context.Background(), &r)
	require.NoError(t, err)
	return stored
}

func TestSearch_DateRange(t *testing.T) {
	f := newFixture(t)
	jan := nc("M1", model.SeverityMajor)
	jan.EventDate = "2024-01-01"
	f.insert(t, jan)
	jun := nc("M1", model.SeverityMajor)
	jun.EventDate = "2024-06-15"
	f.insert(t, jun)
	seedUndated(t, f, nc("M1", model.SeverityMajor))

	filter := service.SearchFilter{From: date("2024-01-01"), To: date("2024-01-31")}
	assert.Len(t, f.ids(t, model.KindNonconformity, filter), 1)

	filter.IncludeUndated = true
	assert.Len(t, f.ids(t, model.KindNonconformity, filter), 2)

	assert.Len(t, f.ids(t, model.KindNonconformity, service.SearchFilter{}), 3, "no range, no date filtering")
}

func TestSearch_ExtensionDateTakesPriority(t *testing.T) {
	f := newFixture(t)
	r := nc("M1", model.SeverityMajor)
	r.EventDate = "2024-06-15"
	r.Extension = model.Extension{"report_date": "2024/01/10"}
	stored := f.insert(t, r)

	res, err := f.search.Search(context.Background(), model.KindNonconformity,
		service.SearchFilter{From: date("2024-01-01"), To: date("2024-01-31")})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, stored.ID, res.Items[0].ID)
	assert.Equal(t, "2024-01-10", res.Items[0].Date)
}

func TestSearch_InvertedRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.search.Search(context.Background(), model.KindNonconformity,
		service.SearchFilter{From: date("2024-02-01"), To: date("2024-01-01")})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestSearch_SeverityOrdering(t *testing.T) {
	f := newFixture(t)
	minor := f.insert(t, nc("M1", model.SeverityMinor))
	major := f.insert(t, nc("M1", model.SeverityMajor))
	critical := f.insert(t, nc("M1", model.SeverityCritical))

	assert.Equal(t, []int64{critical.ID, major.ID, minor.ID},
		f.ids(t, model.KindNonconformity, service.SearchFilter{}))

	minor2 := f.insert(t, nc("M1", model.SeverityMinor))
	critical2 := f.insert(t, nc("M1", model.SeverityCritical))
	assert.Equal(t, []int64{critical2.ID, critical.ID, major.ID, minor2.ID, minor.ID},
		f.ids(t, model.KindNonconformity, service.SearchFilter{}))

	assert.Equal(t, []int64{critical2.ID, minor2.ID, critical.ID, major.ID, minor.ID},
		f.ids(t, model.KindNonconformity, service.SearchFilter{Order: service.OrderNewest}))
}

func TestSearch_FirstPieceIsNewestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.insert(t, fp("M1", "OK"))
	b := f.insert(t, fp("M1", "NG"))
	assert.Equal(t, []int64{b.ID, a.ID}, f.ids(t, model.KindFirstPiece, service.SearchFilter{}))
}

func TestSearch_Predicates(t *testing.T) {
	f := newFixture(t)
	a := nc("190A56980", model.SeverityMajor)
	a.Version, a.SerialNo, a.MO = "A1", "SN-001", "MO-77"
	a.CustomerSupplier = "Acme"
	ra := f.insert(t, a)

	b := nc("200B11", model.SeverityMajor)
	b.Description = "solder bridge"
	b.Extension = model.Extension{"Customer": "Globex", "root_cause": "Stencil clogged"}
	rb := f.insert(t, b)

	c := nc("200B12", model.SeverityMajor)
	c.Extension = model.Extension{"supplier": "Acme"}
	rc := f.insert(t, c)

	tests := []struct {
		name   string
		filter service.SearchFilter
		want   []int64
	}{
		{"model substring", service.SearchFilter{ModelNo: "200b"}, []int64{rc.ID, rb.ID}},
		{"version", service.SearchFilter{Version: "a1"}, []int64{ra.ID}},
		{"serial", service.SearchFilter{SerialNo: "001"}, []int64{ra.ID}},
		{"mo", service.SearchFilter{MO: "mo-7"}, []int64{ra.ID}},
		{"text in column", service.SearchFilter{Text: "BRIDGE"}, []int64{rb.ID}},
		{"text in extension", service.SearchFilter{Text: "clogged"}, []int64{rb.ID}},
		{"customer column or extension", service.SearchFilter{Customer: "Acme"}, []int64{rc.ID, ra.ID}},
		{"customer is case sensitive", service.SearchFilter{Customer: "acme"}, []int64{}},
		{"compound", service.SearchFilter{ModelNo: "200", Customer: "Globex"}, []int64{rb.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ids(t, model.KindNonconformity, tt.filter))
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	f := newFixture(t)
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append([]int64{f.insert(t, fp("M1", "OK")).ID}, ids...)
	}
	ctx := context.Background()

	res, err := f.search.Search(ctx, model.KindFirstPiece, service.SearchFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, ids[1], res.Items[0].ID)

	res, err = f.search.Search(ctx, model.KindFirstPiece, service.SearchFilter{Limit: 1000, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 5, res.Total)
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.search.Search(ctx, "audit", service.SearchFilter{})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = f.search.Search(ctx, model.KindFirstPiece, service.SearchFilter{Order: "oldest"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDistinctCustomers(t *testing.T) {
	f := newFixture(t)
	a := fp("M1", "OK")
	a.CustomerSupplier = "Acme"
	f.insert(t, a)
	b := nc("M2", model.SeverityMinor)
	b.Extension = model.Extension{"customer": "Globex", "CustomerSupplier": "acme"}
	f.insert(t, b)
	c := nc("M3", model.SeverityMinor)
	c.CustomerSupplier = "Acme"
	f.insert(t, c)

	got, err := f.search.DistinctCustomers(context.Background(), model.KindNonconformity)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex", "acme"}, got)

	_, err = f.search.DistinctCustomers(context.Background(), "audit")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestExport_RoundTrip(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()
	a := nc("190A56980", model.SeverityCritical)
	a.Description, a.Station, a.DefectiveQty, a.LotQty = "cold joint, U3", "SMT", 3, 500
	a.Extension = model.Extension{"root_cause": "profile", "corrective_action": "reflow"}
	src.insert(t, a)
	b := nc("200B11", model.SeverityMinor)
	b.EventDate = "2024-01-05"
	b.Extension = model.Extension{"owner": "lee"}
	src.insert(t, b)

	filter := service.SearchFilter{}
	before, err := src.search.Search(ctx, model.KindNonconformity, filter)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := src.search.Export(ctx, model.KindNonconformity, filter, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newFixture(t)
	sess, err := dst.imports.Load(ctx, buf.Bytes(), "export.csv", model.KindNonconformity)
	require.NoError(t, err)
	_, err = dst.imports.Map(ctx, sess.ID, model.KindNonconformity, nil)
	require.NoError(t, err)
	sess, err = dst.imports.Commit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Result.Imported)

	after, err := dst.search.Search(ctx, model.KindNonconformity, filter)
	require.NoError(t, err)
	require.Len(t, after.Items, len(before.Items))
	for i := range before.Items {
		want, got := before.Items[i].Record, after.Items[i].Record
		for _, field := range model.Fields(model.KindNonconformity) {
			wv, _ := want.Get(field)
			gv, _ := got.Get(field)
			assert.Equal(t, wv, gv, "%s of record %d", field, i)
		}
		assert.Equal(t, want.Extension, got.Extension)
	}
}

func TestExport_Paged(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.insert(t, fp("M1", "OK"))
	}
	var buf bytes.Buffer
	n, err := f.search.Export(context.Background(), model.KindFirstPiece, service.SearchFilter{Limit: 2}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
}


func TestExport_HugeLimit(t *testing.T) {
	f := newFixture(t)
	f.insert(t, nc("M1", model.SeverityMajor))
	f.insert(t, nc("M1", model.SeverityMinor))

	tests := []struct {
		name   string
		offset int
		want   int
	}{
		{"from start", 0, 2},
		{"offset one", 1, 1},
		{"past end", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := f.search.Export(context.Background(), model.KindNonconformity,
				service.SearchFilter{Limit: math.MaxInt, Offset: tt.offset}, &buf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}
