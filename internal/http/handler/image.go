package handler

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"

	"qcportal/internal/storage"
)

// ImageReader streams stored images by their relative path.
type ImageReader interface {
	Open(ctx context.Context, rel string) (io.ReadCloser, storage.ObjectInfo, error)
}

// ServeImage streams GET /images/<relative path>.
func ServeImage(images ImageReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rel, err := url.PathUnescape(c.Params("*"))
		if err != nil || rel == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PATH", "invalid image path")
		}
		rc, info, err := images.Open(c.UserContext(), rel)
		switch {
		case errors.Is(err, storage.ErrInvalidPath):
			return writeError(c, fiber.StatusBadRequest, "INVALID_PATH", "invalid image path")
		case errors.Is(err, storage.ErrObjectNotFound):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "image not found")
		case err != nil:
			return writeServiceError(c, err)
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		} else {
			c.Type(strings.TrimPrefix(path.Ext(rel), "."))
		}
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, size)
	}
}
