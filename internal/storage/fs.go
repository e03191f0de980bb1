package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// fsStorage implements Storage on an afero filesystem. Production uses a
// base-path OS filesystem rooted at the configured directory; tests use a
// memory-backed one.
type fsStorage struct {
	fs afero.Fs
}

// NewFS returns a Storage writing under the root of fsys.
func NewFS(fsys afero.Fs) Storage {
	return &fsStorage{fs: fsys}
}

// NewLocal returns a filesystem Storage rooted at dir, creating it if needed.
func NewLocal(dir string) (Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

func fsPath(key string) string {
	return filepath.FromSlash(strings.TrimPrefix(key, "/"))
}

func (s *fsStorage) info(key string, fi os.FileInfo) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}
}

func (s *fsStorage) Put(_ context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	p := fsPath(key)
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return ObjectInfo{}, err
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return ObjectInfo{}, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(p)
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

func (s *fsStorage) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	f, err := s.fs.Open(fsPath(key))
	if err != nil {
		return nil, ObjectInfo{}, s.notFound(key, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	info := s.info(key, fi)
	// Sniff the content type from the head of the file, then rewind.
	head := make([]byte, 3072)
	n, _ := io.ReadFull(f, head)
	info.ContentType = mimetype.Detect(head[:n]).String()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	return f, info, nil
}

func (s *fsStorage) Stat(_ context.Context, key string) (ObjectInfo, error) {
	fi, err := s.fs.Stat(fsPath(key))
	if err != nil {
		return ObjectInfo{}, s.notFound(key, err)
	}
	if fi.IsDir() {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return s.info(key, fi), nil
}

func (s *fsStorage) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	dir := path.Dir(prefix + "x")
	var out []ObjectInfo
	err := afero.Walk(s.fs, fsPath(dir), func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		key := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if strings.HasPrefix(key, prefix) {
			out = append(out, s.info(key, fi))
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return out, nil
}

func (s *fsStorage) Copy(ctx context.Context, src, dst string) error {
	data, err := afero.ReadFile(s.fs, fsPath(src))
	if err != nil {
		return s.notFound(src, err)
	}
	_, err = s.Put(ctx, dst, bytes.NewReader(data), PutObjectOptions{Size: int64(len(data))})
	return err
}

func (s *fsStorage) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(fsPath(key)); err != nil {
		return s.notFound(key, err)
	}
	return nil
}

func (s *fsStorage) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (s *fsStorage) notFound(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return err
}
