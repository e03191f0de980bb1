package service

import "context"

// ImageStore is the blob-store contract the services depend on.
// storage.BlobStore implements it.
type ImageStore interface {
	Save(ctx context.Context, modelNo string, data []byte, filename string) (string, error)
	Delete(ctx context.Context, rel string) error
	CopyDir(ctx context.Context, oldModel, newModel string) (int, error)
	DeleteDir(ctx context.Context, modelNo string) error
}

// Image is an uploaded image file.
type Image struct {
	Filename string
	Data     []byte
}
