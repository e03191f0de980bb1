package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcportal/internal/config"
	"qcportal/internal/importer"
	"qcportal/internal/model"
	"qcportal/internal/service"
)

func defectSheet() []byte {
	var b strings.Builder
	b.WriteString("ModelVersion,Date,Defect Description,Severity,Root Cause\n")
	for i := 1; i <= 10; i++ {
		d := fmt.Sprintf("2024/03/%02d", i)
		if i == 5 {
			d = "sometime in march"
		}
		fmt.Fprintf(&b, "190A5698%d,%s,defect %d,minor,cause %d\n", i%3, d, i, i)
	}
	return []byte(b.String())
}

func newImportService(t *testing.T, f *fixture, reg prometheus.Registerer) service.ImportService {
	t.Helper()
	svc, err := service.NewImportService(f.records.Importer(), config.DefaultVocabulary().Aliases, 3, nil, reg)
	require.NoError(t, err)
	return svc
}

func TestImport_SkipsUnparseableDateRow(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	imports := newImportService(t, f, reg)
	ctx := context.Background()

	sess, err := imports.Load(ctx, defectSheet(), "march.csv", model.KindNonconformity)
	require.NoError(t, err)
	assert.Equal(t, importer.StateLoaded, sess.State)
	assert.Equal(t, 10, sess.Preview.TotalRows)
	assert.Len(t, sess.Preview.Rows, 3)
	assert.Equal(t, importer.Mapping{
		"ModelVersion":       "model_no",
		"Date":               "event_date",
		"Defect Description": "description",
		"Severity":           "severity",
	}, sess.Suggestion)

	sess, err = imports.Map(ctx, sess.ID, model.KindNonconformity, nil)
	require.NoError(t, err)
	assert.Equal(t, importer.StateMapped, sess.State)

	sess, err = imports.Commit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, importer.StateImported, sess.State)
	assert.Equal(t, 10, sess.Result.Total)
	assert.Equal(t, 9, sess.Result.Imported)
	assert.Equal(t, 1, sess.Result.Skipped)
	require.Len(t, sess.Result.Errors, 1)
	assert.Equal(t, 6, sess.Result.Errors[0].Row)

	n, err := f.store.Records().Count(ctx, model.KindNonconformity)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, 9.0, rowCount(t, reg, "imported"))
	assert.Equal(t, 1.0, rowCount(t, reg, "skipped"))

	res, err := f.search.Search(ctx, model.KindNonconformity, service.SearchFilter{Text: "cause 7"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	hit := res.Items[0]
	assert.Equal(t, "2024-03-07", hit.EventDate)
	assert.Equal(t, model.SeverityMinor, hit.Severity)
	assert.Equal(t, model.Extension{"Root Cause": "cause 7"}, hit.Extension)

	models, err := f.models.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, models, 3, "imports register their models")
}

// rowCount reads qc_import_rows_total{outcome} from reg.
func rowCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != "qc_import_rows_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestImport_UnreadableFileLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t, nc("M1", model.SeverityMajor))
	before, err := f.store.Records().Count(ctx, model.KindNonconformity)
	require.NoError(t, err)

	utf16 := []byte{0xFF, 0xFE, 'm', 0, ',', 0, 'd', 0, '\n', 0, 'M', 0, ',', 0, 'x', 0, '\n', 0}
	_, err = f.imports.Load(ctx, utf16, "utf16.csv", model.KindNonconformity)
	assert.ErrorIs(t, err, importer.ErrUnreadableFile)
	assert.True(t, service.IsImportInputError(err))

	after, err := f.store.Records().Count(ctx, model.KindNonconformity)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImport_IncompleteMappingKeepsSessionLoaded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.imports.Load(ctx, []byte("Model,Notes\nM1,x\n"), "a.csv", "")
	require.NoError(t, err)
	assert.Nil(t, sess.Suggestion)

	_, err = f.imports.Map(ctx, sess.ID, model.KindNonconformity, importer.Mapping{"Model": "model_no"})
	assert.ErrorIs(t, err, importer.ErrIncompleteMapping)

	got, err := f.imports.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, importer.StateLoaded, got.State)

	got, err = f.imports.Map(ctx, sess.ID, model.KindNonconformity, importer.Mapping{"Model": "model_no", "Notes": "description"})
	require.NoError(t, err)
	assert.Equal(t, importer.StateMapped, got.State)
}

func TestImport_SessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.imports.Load(ctx, []byte("model_no\nM1\n"), "a.csv", model.KindFirstPiece)
	require.NoError(t, err)

	_, err = f.imports.Commit(ctx, sess.ID)
	assert.ErrorIs(t, err, importer.ErrInvalidState, "commit needs a mapping")

	_, err = f.imports.Map(ctx, sess.ID, "audit", nil)
	assert.ErrorIs(t, err, service.ErrValidation)

	require.NoError(t, f.imports.Close(ctx, sess.ID))
	_, err = f.imports.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, f.imports.Close(ctx, sess.ID), service.ErrSessionNotFound)
	_, err = f.imports.Commit(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestImport_CommitSendsNoNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.imports.Load(ctx, defectSheet(), "march.csv", model.KindNonconformity)
	require.NoError(t, err)
	_, err = f.imports.Map(ctx, sess.ID, model.KindNonconformity, nil)
	require.NoError(t, err)
	sess, err = f.imports.Commit(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 9, sess.Result.Imported)

	assert.Empty(t, f.notifier.titles())

	f.insert(t, nc("190A56980", model.SeverityMajor))
	assert.Len(t, f.notifier.titles(), 1, "manual entry still notifies")
}

func TestImport_IdleSessionsExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	imports, err := service.NewImportService(f.records.Importer(), nil, 3, nil, nil,
		service.WithSessionTTL(time.Hour),
		service.WithImportClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	idle, err := imports.Load(ctx, []byte("model_no\nM1\n"), "a.csv", "")
	require.NoError(t, err)
	busy, err := imports.Load(ctx, []byte("model_no\nM2\n"), "b.csv", "")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, err = imports.Get(ctx, busy.ID)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = imports.Get(ctx, idle.ID)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
	got, err := imports.Get(ctx, busy.ID)
	require.NoError(t, err, "use refreshes the session")
	assert.Equal(t, importer.StateLoaded, got.State)
}

func TestImport_CommittedSessionKeepsPreviewAndResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.imports.Load(ctx, defectSheet(), "march.csv", model.KindNonconformity)
	require.NoError(t, err)
	_, err = f.imports.Map(ctx, sess.ID, model.KindNonconformity, nil)
	require.NoError(t, err)
	_, err = f.imports.Commit(ctx, sess.ID)
	require.NoError(t, err)

	got, err := f.imports.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, importer.StateImported, got.State)
	require.NotNil(t, got.Preview)
	assert.Equal(t, 10, got.Preview.TotalRows)
	assert.Len(t, got.Preview.Rows, 5)
	assert.Equal(t, 9, got.Result.Imported)
}
