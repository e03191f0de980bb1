package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"qcportal/internal/model"
	"qcportal/internal/service"
)

// ListModels godoc
// @Summary List models
// @Param q query string false "matches model number, root and name"
// @Param folder query string false "folder tag"
// @Success 200 {array} model.Model
// @Router /models [get]
func ListModels(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext(), c.Query("q"), c.Query("folder"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	}
}

func GetModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := svc.Get(c.UserContext(), modelParam(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}

type modelBody struct {
	DisplayName      string `json:"display_name"`
	CustomerSupplier string `json:"customer_supplier"`
	Folder           string `json:"folder"`
}

// UpsertModel godoc
// @Summary Create or fully replace a model
// @Param model_no path string true "model number"
// @Success 200 {object} model.Model
// @Router /models/{model_no} [put]
func UpsertModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body modelBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		m, err := svc.Upsert(c.UserContext(), model.Model{
			ModelNo:          modelParam(c),
			DisplayName:      body.DisplayName,
			CustomerSupplier: body.CustomerSupplier,
			Folder:           body.Folder,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}

// PatchModel changes only the attributes present in the body.
func PatchModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if !gjson.ValidBytes(body) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		var p service.ModelPatch
		for key, dst := range map[string]**string{
			"display_name":      &p.DisplayName,
			"customer_supplier": &p.CustomerSupplier,
			"folder":            &p.Folder,
		} {
			if r := gjson.GetBytes(body, key); r.Exists() {
				v := r.String()
				*dst = &v
			}
		}
		m, err := svc.Patch(c.UserContext(), modelParam(c), p)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}

// RenameModel godoc
// @Summary Rename a model, moving its records and images
// @Param model_no path string true "current model number"
// @Success 200 {object} service.RenameResult
// @Router /models/{model_no}/rename [post]
func RenameModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			NewModelNo string `json:"new_model_no"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := svc.Rename(c.UserContext(), modelParam(c), body.NewModelNo)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// DeleteModel godoc
// @Summary Delete a model
// @Param cascade_records query bool false "also delete its records"
// @Param cascade_blobs query bool false "also delete its images"
// @Success 200 {object} service.DeleteModelResult
// @Failure 409 {object} errorPayload
// @Router /models/{model_no} [delete]
func DeleteModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cascadeRecords, err := boolQuery(c, "cascade_records")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", "cascade_records must be a boolean")
		}
		cascadeBlobs, err := boolQuery(c, "cascade_blobs")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", "cascade_blobs must be a boolean")
		}
		res, err := svc.Delete(c.UserContext(), modelParam(c), service.DeleteModelOptions{
			CascadeRecords: cascadeRecords,
			CascadeBlobs:   cascadeBlobs,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

func ListFolders(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		folders, err := svc.Folders(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": folders})
	}
}
