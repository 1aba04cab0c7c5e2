package api

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers every API route behind the given middleware.
// Routes that must stay public, such as login, are registered before it.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	api := app.Group("/api", middleware...)

	api.Get("/languages", h.ListLanguages)
	api.Post("/languages", h.CreateLanguage)
	api.Patch("/languages/:id", h.UpdateLanguage)
	api.Delete("/languages/:id", h.DeleteLanguage)

	api.Get("/projects", h.ListProjects)
	api.Post("/projects", h.CreateProject)
	project := api.Group("/projects/:projectId")
	project.Get("/", h.GetProject)
	project.Patch("/", h.UpdateProject)
	project.Delete("/", h.DeleteProject)
	project.Post("/languages/:languageId", h.AttachLanguage)
	project.Delete("/languages/:languageId", h.DetachLanguage)
	project.Get("/dialog-sections", h.DialogSectionIDs)
	project.Get("/export.csv", h.ExportCSV)

	project.Get("/groups", h.ListGroups)
	project.Post("/groups", h.CreateGroup)
	project.Get("/groups/:groupId", h.GetGroup)
	project.Patch("/groups/:groupId", h.UpdateGroup)
	project.Delete("/groups/:groupId", h.DeleteGroup)
	project.Get("/groups/:groupId/entries", h.ListEntries)
	project.Post("/groups/:groupId/entries", h.CreateEntry)
	project.Patch("/groups/:groupId/entries/:entryId", h.UpdateEntry)
	project.Delete("/groups/:groupId/entries/:entryId", h.DeleteEntry)
	project.Put("/groups/:groupId/entries/:entryId/translations", h.SetTranslation)

	// export.zip must be matched before :dialogId
	project.Get("/dialogs/export.zip", h.ExportZip)
	project.Get("/dialogs", h.ListDialogs)
	project.Post("/dialogs", h.CreateDialog)

	dialog := project.Group("/dialogs/:dialogId")
	dialog.Get("/", h.GetDialog)
	dialog.Patch("/", h.UpdateDialog)
	dialog.Delete("/", h.DeleteDialog)
	dialog.Get("/export", h.ExportDialog)
	dialog.Post("/import", h.ImportDialog)
	dialog.Get("/graph", h.Graph)
	dialog.Get("/graph.svg", h.GraphSVG)
	dialog.Get("/graph/stream", h.GraphStream)
	dialog.Get("/lint", h.Lint)

	dialog.Post("/sections", h.CreateSection)
	dialog.Patch("/sections/:sectionId", h.UpdateSection)
	dialog.Delete("/sections/:sectionId", h.DeleteSection)
	dialog.Post("/sections/:sectionId/lines", h.CreateLine)
	dialog.Patch("/sections/:sectionId/lines/reorder", h.ReorderLines)

	dialog.Patch("/lines/:lineId", h.UpdateLine)
	dialog.Delete("/lines/:lineId", h.DeleteLine)
	dialog.Put("/lines/:lineId/text", h.SetLineText)
	dialog.Put("/lines/:lineId/options/:index/text", h.SetOptionText)
}
