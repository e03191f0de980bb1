package handler

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"qcportal/internal/importer"
	"qcportal/internal/model"
	"qcportal/internal/service"
)

// LoadImport godoc
// @Summary Upload a CSV or Excel file and open an import session
// @Accept multipart/form-data
// @Param file formData file true "csv, txt, xlsx or xlsm"
// @Param kind formData string false "target kind; when set the session carries a suggested mapping"
// @Success 201 {object} service.ImportSession
// @Failure 422 {object} errorPayload
// @Router /imports [post]
func LoadImport(svc service.ImportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		var kind model.Kind
		if v := c.FormValue("kind"); v != "" {
			if kind, err = model.ParseKind(v); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
			}
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		sess, err := svc.Load(c.UserContext(), data, fh.Filename, kind)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	}
}

func GetImport(svc service.ImportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	}
}

// MapImport godoc
// @Summary Set the target kind and column mapping of a session
// @Description Body {"kind": "...", "mapping": {"<source header>": "<target>"}}.
// @Description Omitting mapping accepts the suggested one.
// @Success 200 {object} service.ImportSession
// @Router /imports/{id}/mapping [put]
func MapImport(svc service.ImportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if !gjson.ValidBytes(body) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		kind, err := model.ParseKind(gjson.GetBytes(body, "kind").String())
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		var m importer.Mapping
		if r := gjson.GetBytes(body, "mapping"); r.Exists() {
			if !r.IsObject() {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "mapping must be an object")
			}
			m = importer.Mapping(stringMap(r))
		}
		sess, err := svc.Map(c.UserContext(), c.Params("id"), kind, m)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	}
}

// CommitImport godoc
// @Summary Insert every row of a mapped session
// @Success 200 {object} service.ImportSession
// @Failure 409 {object} errorPayload
// @Router /imports/{id}/commit [post]
func CommitImport(svc service.ImportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := svc.Commit(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	}
}

func CloseImport(svc service.ImportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Close(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
