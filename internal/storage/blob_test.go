package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qcportal/internal/storage"
	"qcportal/internal/storage/mocks"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newMemBlobStore(prefix string) (*storage.BlobStore, afero.Fs) {
	fsys := afero.NewMemMapFs()
	return storage.NewBlobStore(storage.NewFS(fsys), prefix), fsys
}

func TestDir(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"190A56980", "190A56980/"},
		{"AB 12/34", "AB_12_34~8dffad1405f4/"},
		{"..", "_unassigned~5ec1f7e700f3/"},
		{"", "_unassigned~e3b0c44298fc/"},
		{"v1.2-x_y", "v1.2-x_y/"},
		{"A B", "A_B~fea4c5ce720c/"},
		{"A/B", "A_B~998d3ed8983a/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.Dir(tt.in))
		})
	}
}

func TestDir_DistinctModelsNeverShare(t *testing.T) {
	seen := map[string]string{}
	for _, m := range []string{"A_B", "A B", "A/B", "A:B", " A_B", "A_B.", "", ".", ".."} {
		d := storage.Dir(m)
		if prev, ok := seen[d]; ok {
			t.Fatalf("models %q and %q share directory %s", prev, m, d)
		}
		seen[d] = m
	}
}

func TestBlobStore_DeleteDirLeavesSimilarModel(t *testing.T) {
	ctx := context.Background()
	blobs, _ := newMemBlobStore("")

	kept, err := blobs.Save(ctx, "A_B", pngBytes, "a.png")
	require.NoError(t, err)
	gone, err := blobs.Save(ctx, "A B", pngBytes, "b.png")
	require.NoError(t, err)

	require.NoError(t, blobs.DeleteDir(ctx, "A B"))

	ok, err := blobs.Exists(ctx, kept)
	require.NoError(t, err)
	assert.True(t, ok, "A_B image survives deleting A B")
	ok, err = blobs.Exists(ctx, gone)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobStore_SaveReadExists(t *testing.T) {
	ctx := context.Background()
	blobs, fsys := newMemBlobStore("images")

	rel, err := blobs.Save(ctx, "M1", pngBytes, `C:\photos\Board.PNG`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "M1/"), rel)
	assert.True(t, strings.HasSuffix(rel, ".png"), rel)

	ok, err := afero.Exists(fsys, "images/"+rel)
	require.NoError(t, err)
	assert.True(t, ok, "stored under the prefix")

	exists, err := blobs.Exists(ctx, rel)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := blobs.Read(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, info, err := blobs.Open(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, rel, info.Key)
}

func TestBlobStore_SaveSniffsExtension(t *testing.T) {
	blobs, _ := newMemBlobStore("")

	rel, err := blobs.Save(context.Background(), "M1", pngBytes, "upload")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rel, ".png"), rel)
}

func TestBlobStore_SaveNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	blobs, _ := newMemBlobStore("")

	first, err := blobs.Save(ctx, "M1", pngBytes, "a.png")
	require.NoError(t, err)
	second, err := blobs.Save(ctx, "M1", []byte("other"), "a.png")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	data, err := blobs.Read(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestBlobStore_SaveRejectsEmpty(t *testing.T) {
	blobs, _ := newMemBlobStore("")
	_, err := blobs.Save(context.Background(), "M1", nil, "a.png")
	assert.Error(t, err)
}

func TestBlobStore_InvalidPath(t *testing.T) {
	ctx := context.Background()
	blobs, _ := newMemBlobStore("")

	for _, rel := range []string{"../etc/passwd", "/abs.png", "M1/../../x", `M1\x.png`, ""} {
		_, err := blobs.Exists(ctx, rel)
		assert.ErrorIs(t, err, storage.ErrInvalidPath, rel)
	}
}

func TestBlobStore_DeleteIgnoresMissing(t *testing.T) {
	ctx := context.Background()
	blobs, _ := newMemBlobStore("")

	rel, err := blobs.Save(ctx, "M1", pngBytes, "a.png")
	require.NoError(t, err)
	require.NoError(t, blobs.Delete(ctx, rel))
	assert.NoError(t, blobs.Delete(ctx, rel))

	exists, err := blobs.Exists(ctx, rel)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBlobStore_CopyAndDeleteDir(t *testing.T) {
	ctx := context.Background()
	blobs, _ := newMemBlobStore("images")

	a, err := blobs.Save(ctx, "OLD", pngBytes, "a.png")
	require.NoError(t, err)
	_, err = blobs.Save(ctx, "OLD", pngBytes, "b.png")
	require.NoError(t, err)
	_, err = blobs.Save(ctx, "OTHER", pngBytes, "c.png")
	require.NoError(t, err)

	n, err := blobs.CopyDir(ctx, "OLD", "NEW")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	moved := "NEW/" + strings.TrimPrefix(a, "OLD/")
	exists, err := blobs.Exists(ctx, moved)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, blobs.DeleteDir(ctx, "OLD"))
	exists, err = blobs.Exists(ctx, a)
	require.NoError(t, err)
	assert.False(t, exists)

	n, err = blobs.CopyDir(ctx, "OLD", "NEW")
	require.NoError(t, err)
	assert.Zero(t, n, "empty source directory copies nothing")
}

func TestBlobStore_URLUnsupportedOnFilesystem(t *testing.T) {
	blobs, _ := newMemBlobStore("")
	_, err := blobs.URL(context.Background(), "M1/a.png", time.Minute)
	assert.ErrorIs(t, err, storage.ErrPresignUnsupported)
}

func TestBlobStore_BackendFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("put error", func(t *testing.T) {
		ms := new(mocks.MockStorage)
		ms.On("Stat", mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, storage.ErrObjectNotFound)
		ms.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, errors.New("bucket gone"))

		_, err := storage.NewBlobStore(ms, "images").Save(ctx, "M1", pngBytes, "a.png")
		assert.ErrorContains(t, err, "bucket gone")
	})

	t.Run("copy error", func(t *testing.T) {
		ms := new(mocks.MockStorage)
		ms.On("List", mock.Anything, "images/OLD/").Return([]storage.ObjectInfo{{Key: "images/OLD/a.png"}}, nil)
		ms.On("Copy", mock.Anything, "images/OLD/a.png", "images/NEW/a.png").Return(errors.New("denied"))

		n, err := storage.NewBlobStore(ms, "images").CopyDir(ctx, "OLD", "NEW")
		assert.ErrorContains(t, err, "denied")
		assert.Zero(t, n)
		ms.AssertExpectations(t)
	})

	t.Run("presign", func(t *testing.T) {
		ms := new(mocks.MockStorage)
		ms.On("PresignGet", mock.Anything, "images/M1/a.png", time.Minute).Return("https://minio/x", nil)

		u, err := storage.NewBlobStore(ms, "images").URL(ctx, "M1/a.png", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "https://minio/x", u)
	})
}
