package handler

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"qcportal/internal/model"
	"qcportal/internal/service"
)

// recordPayload reads {"fields": {...}, "extension": {...}}.
func recordPayload(body []byte) (map[string]string, model.Extension, bool) {
	if !gjson.ValidBytes(body) {
		return nil, nil, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, nil, false
	}
	return stringMap(root.Get("fields")), model.Extension(stringMap(root.Get("extension"))), true
}

func readImage(fh *multipart.FileHeader) (service.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Image{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.Image{}, err
	}
	return service.Image{Filename: fh.Filename, Data: data}, nil
}

// CreateRecord godoc
// @Summary Create a record
// @Description JSON body {fields, extension}, or multipart/form-data with a
// @Description "payload" JSON field and any number of "images" files.
// @Param kind path string true "first_piece or nonconformity"
// @Success 201 {object} service.CreateResult
// @Router /records/{kind} [post]
func CreateRecord(svc service.RecordService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}

		in := service.NewRecord{Kind: kind}
		var ok bool
		if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
			form, err := c.MultipartForm()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid multipart body")
			}
			var payload string
			if v := form.Value["payload"]; len(v) > 0 {
				payload = v[0]
			}
			if payload == "" {
				payload = "{}"
			}
			in.Fields, in.Extension, ok = recordPayload([]byte(payload))
			if !ok {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "payload must be a JSON object")
			}
			for _, fh := range form.File["images"] {
				img, err := readImage(fh)
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				in.Images = append(in.Images, img)
			}
		} else {
			in.Fields, in.Extension, ok = recordPayload(c.Body())
			if !ok {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}

		res, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GetRecord godoc
// @Summary Fetch a record
// @Success 200 {object} model.Record
// @Failure 404 {object} errorPayload
// @Router /records/{kind}/{id} [get]
func GetRecord(svc service.RecordService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		id, err := idParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rec, err := svc.Get(c.UserContext(), kind, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(rec)
	}
}

// UpdateRecord overwrites the supplied fields and merges the supplied extension keys.
func UpdateRecord(svc service.RecordService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		id, err := idParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fields, ext, ok := recordPayload(c.Body())
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		rec, err := svc.Update(c.UserContext(), kind, id, fields, ext)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(rec)
	}
}

// DeleteRecord godoc
// @Summary Delete a record
// @Param delete_blobs query bool false "also delete its images"
// @Success 204
// @Router /records/{kind}/{id} [delete]
func DeleteRecord(svc service.RecordService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		id, err := idParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		deleteBlobs, err := boolQuery(c, "delete_blobs")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", "delete_blobs must be a boolean")
		}
		if err := svc.Delete(c.UserContext(), kind, id, deleteBlobs); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AttachImage godoc
// @Summary Add an image to a record (multipart field "file")
// @Success 200 {object} model.Record
// @Router /records/{kind}/{id}/images [post]
func AttachImage(svc service.RecordService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		id, err := idParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		img, err := readImage(fh)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		rec, err := svc.AttachImage(c.UserContext(), kind, id, img)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(rec)
	}
}
