package handler

import (
	"github.com/gofiber/fiber/v2"

	"qcportal/internal/config"
	"qcportal/internal/service"
)

// Deps carries everything the routes need. Nil services leave their routes unregistered.
type Deps struct {
	DB         Pinger
	Models     service.ModelService
	Records    service.RecordService
	Search     service.SearchService
	Imports    service.ImportService
	Images     ImageReader
	Vocabulary *config.Vocabulary
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	app.Get("/vocabulary", GetVocabulary(d.Vocabulary))

	if d.Models != nil {
		app.Get("/models", ListModels(d.Models))
		app.Get("/models/:model_no", GetModel(d.Models))
		app.Put("/models/:model_no", UpsertModel(d.Models))
		app.Patch("/models/:model_no", PatchModel(d.Models))
		app.Post("/models/:model_no/rename", RenameModel(d.Models))
		app.Delete("/models/:model_no", DeleteModel(d.Models))
		app.Get("/folders", ListFolders(d.Models))
	}

	if d.Records != nil {
		app.Post("/records/:kind", CreateRecord(d.Records))
		app.Get("/records/:kind/:id", GetRecord(d.Records))
		app.Patch("/records/:kind/:id", UpdateRecord(d.Records))
		app.Delete("/records/:kind/:id", DeleteRecord(d.Records))
		app.Post("/records/:kind/:id/images", AttachImage(d.Records))
	}

	if d.Search != nil {
		app.Get("/search/:kind", SearchRecords(d.Search))
		app.Get("/export/:kind", ExportRecords(d.Search))
		app.Get("/customers", ListCustomers(d.Search))
	}

	if d.Imports != nil {
		app.Post("/imports", LoadImport(d.Imports))
		app.Get("/imports/:id", GetImport(d.Imports))
		app.Put("/imports/:id/mapping", MapImport(d.Imports))
		app.Post("/imports/:id/commit", CommitImport(d.Imports))
		app.Delete("/imports/:id", CloseImport(d.Imports))
	}

	if d.Images != nil {
		app.Get("/images/*", ServeImage(d.Images))
	}
}
