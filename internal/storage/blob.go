package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrInvalidPath is returned for relative paths that escape the blob root.
var ErrInvalidPath = errors.New("invalid blob path")

// BlobStore saves record images under a model-scoped directory. Every path it
// returns is relative to its root, so the same references stay valid when
// the root moves.
type BlobStore struct {
	store  Storage
	prefix string
	now    func() time.Time
	suffix func() string
}

// NewBlobStore returns a BlobStore writing through store. prefix is prepended
// to every key and never appears in returned paths.
func NewBlobStore(store Storage, prefix string) *BlobStore {
	return &BlobStore{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		suffix: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}
}

// Dir returns the relative directory holding a model's images, with a trailing
// slash. Model numbers that are not already safe path segments get a "~" and a
// digest of the raw value appended, so distinct model numbers never share a
// directory.
func Dir(modelNo string) string {
	var b strings.Builder
	for _, r := range modelNo {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	d := strings.Trim(b.String(), ".")
	if d != "" && d == modelNo {
		return d + "/"
	}
	if d == "" {
		d = "_unassigned"
	}
	sum := sha256.Sum256([]byte(modelNo))
	return d + "~" + hex.EncodeToString(sum[:6]) + "/"
}

func (b *BlobStore) key(rel string) (string, error) {
	trimmed := strings.TrimSuffix(rel, "/")
	if trimmed == "" || strings.Contains(rel, "\\") || path.Clean("/"+trimmed) != "/"+trimmed {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	if b.prefix == "" {
		return rel, nil
	}
	return b.prefix + "/" + rel, nil
}

func (b *BlobStore) rel(key string) string {
	if b.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, b.prefix+"/")
}

// Save stores data under the model's directory with a timestamped, randomly
// suffixed name and returns the relative path. The extension comes from
// filename, or from the sniffed content when filename has none.
func (b *BlobStore) Save(ctx context.Context, modelNo string, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}
	mt := mimetype.Detect(data)
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if ext == "" || len(ext) > 8 {
		ext = mt.Extension()
	}

	for attempt := 0; attempt < 5; attempt++ {
		rel := Dir(modelNo) + b.now().UTC().Format("20060102T150405") + "_" + b.suffix() + ext
		key, err := b.key(rel)
		if err != nil {
			return "", err
		}
		if _, err := b.store.Stat(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, ErrObjectNotFound) {
			return "", err
		}
		_, err = b.store.Put(ctx, key, bytes.NewReader(data), PutObjectOptions{
			Size:        int64(len(data)),
			ContentType: mt.String(),
			Metadata:    map[string]string{"original-filename": path.Base(strings.ReplaceAll(filename, "\\", "/"))},
		})
		if err != nil {
			return "", fmt.Errorf("put %s: %w", rel, err)
		}
		return rel, nil
	}
	return "", errors.New("could not allocate a unique image name")
}

// Exists reports whether rel refers to a stored object.
func (b *BlobStore) Exists(ctx context.Context, rel string) (bool, error) {
	key, err := b.key(rel)
	if err != nil {
		return false, err
	}
	if _, err := b.store.Stat(ctx, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Open streams the object at rel.
func (b *BlobStore) Open(ctx context.Context, rel string) (io.ReadCloser, ObjectInfo, error) {
	key, err := b.key(rel)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	rc, info, err := b.store.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info.Key = rel
	return rc, info, nil
}

// Read returns the full content of rel.
func (b *BlobStore) Read(ctx context.Context, rel string) ([]byte, error) {
	rc, _, err := b.Open(ctx, rel)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete removes rel. A missing object is not an error.
func (b *BlobStore) Delete(ctx context.Context, rel string) error {
	key, err := b.key(rel)
	if err != nil {
		return err
	}
	if err := b.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return err
	}
	return nil
}

// CopyDir copies every object of oldModel's directory into newModel's and
// returns how many were copied. The source is left in place.
func (b *BlobStore) CopyDir(ctx context.Context, oldModel, newModel string) (int, error) {
	from, to := Dir(oldModel), Dir(newModel)
	if from == to {
		return 0, nil
	}
	srcPrefix, err := b.key(from)
	if err != nil {
		return 0, err
	}
	objs, err := b.store.List(ctx, srcPrefix)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", from, err)
	}
	n := 0
	for _, o := range objs {
		rel := to + strings.TrimPrefix(b.rel(o.Key), from)
		dst, err := b.key(rel)
		if err != nil {
			return n, err
		}
		if err := b.store.Copy(ctx, o.Key, dst); err != nil {
			return n, fmt.Errorf("copy %s: %w", b.rel(o.Key), err)
		}
		n++
	}
	return n, nil
}

// DeleteDir removes every object in the model's directory.
func (b *BlobStore) DeleteDir(ctx context.Context, modelNo string) error {
	prefix, err := b.key(Dir(modelNo))
	if err != nil {
		return err
	}
	objs, err := b.store.List(ctx, prefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, o := range objs {
		if err := b.store.Delete(ctx, o.Key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// URL returns a time-limited download URL for rel when the backend supports it.
func (b *BlobStore) URL(ctx context.Context, rel string, expiry time.Duration) (string, error) {
	key, err := b.key(rel)
	if err != nil {
		return "", err
	}
	return b.store.PresignGet(ctx, key, expiry)
}
