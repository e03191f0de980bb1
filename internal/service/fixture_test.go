package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"qcportal/internal/cache"
	"qcportal/internal/model"
	"qcportal/internal/notify"
	"qcportal/internal/repository/memory"
	"qcportal/internal/service"
	"qcportal/internal/storage"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.msgs))
	for i, m := range n.msgs {
		out[i] = m.Title
	}
	return out
}

type fixture struct {
	store    *memory.Store
	blobs    *storage.BlobStore
	cache    *cache.Memory
	notifier *recordingNotifier
	models   service.ModelService
	records  service.RecordService
	search   service.SearchService
	imports  service.ImportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithImages(t, nil)
}

// newFixtureWithImages wires the services to images, or to an in-memory
// blob store when images is nil.
func newFixtureWithImages(t *testing.T, images service.ImageStore) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		blobs:    storage.NewBlobStore(storage.NewFS(afero.NewMemMapFs()), "images"),
		cache:    cache.NewMemory(),
		notifier: &recordingNotifier{},
	}
	if images == nil {
		images = f.blobs
	}
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	f.models = service.NewModelService(f.store.Models(), f.store.Records(), images, f.cache, nil)
	f.records = service.NewRecordService(f.store.Records(), images, f.cache, nil,
		service.WithNotifier(f.notifier),
		service.WithDefaultReporter("qc"),
		service.WithClock(func() time.Time { return now }),
	)
	f.search = service.NewSearchService(f.store.Records(), f.cache, service.SearchLimits{Default: 50, Max: 200}, nil)
	imports, err := service.NewImportService(f.records.Importer(), nil, 5, nil, nil)
	require.NoError(t, err)
	f.imports = imports
	return f
}

func (f *fixture) insert(t *testing.T, r model.Record) *model.Record {
	t.Helper()
	stored, err := f.records.Insert(context.Background(), &r)
	require.NoError(t, err)
	return stored
}

func (f *fixture) ids(t *testing.T, kind model.Kind, filter service.SearchFilter) []int64 {
	t.Helper()
	res, err := f.search.Search(context.Background(), kind, filter)
	require.NoError(t, err)
	out := make([]int64, len(res.Items))
	for i, h := range res.Items {
		out[i] = h.ID
	}
	return out
}

func nc(modelNo string, sev model.Severity) model.Record {
	return model.Record{Kind: model.KindNonconformity, ModelNo: modelNo, Severity: sev, Description: "defect"}
}

func fp(modelNo, status string) model.Record {
	return model.Record{Kind: model.KindFirstPiece, ModelNo: modelNo, Status: status}
}

func date(s string) *time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}
