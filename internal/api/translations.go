package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
)

// ListGroups handles GET /api/projects/:projectId/groups
func (h *Handler) ListGroups(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	groups, err := h.repo.ListGroups(c.UserContext(), projectID)
	if err != nil {
		return err
	}
	return ok(c, groups)
}

// CreateGroup handles POST /api/projects/:projectId/groups
func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	var in repo.GroupInput
	if err := bind(c, &in); err != nil {
		return err
	}
	g, err := h.repo.CreateGroup(c.UserContext(), projectID, in)
	if err != nil {
		return err
	}
	return created(c, g)
}

// GetGroup handles GET /api/projects/:projectId/groups/:groupId
func (h *Handler) GetGroup(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	g, err := h.repo.GetGroup(c.UserContext(), projectID, groupID)
	if err != nil {
		return err
	}
	return ok(c, g)
}

// UpdateGroup handles PATCH /api/projects/:projectId/groups/:groupId
func (h *Handler) UpdateGroup(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	var patch repo.GroupPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	g, err := h.repo.UpdateGroup(c.UserContext(), projectID, groupID, patch)
	if err != nil {
		return err
	}
	return ok(c, g)
}

// DeleteGroup handles DELETE /api/projects/:projectId/groups/:groupId
func (h *Handler) DeleteGroup(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	if err := h.repo.DeleteGroup(c.UserContext(), projectID, groupID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListEntries handles GET .../groups/:groupId/entries
func (h *Handler) ListEntries(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	entries, err := h.repo.ListEntries(c.UserContext(), projectID, groupID)
	if err != nil {
		return err
	}
	return ok(c, entries)
}

// CreateEntry handles POST .../groups/:groupId/entries
func (h *Handler) CreateEntry(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	var in repo.EntryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	e, err := h.repo.CreateEntry(c.UserContext(), projectID, groupID, in)
	if err != nil {
		return err
	}
	return created(c, e)
}

// UpdateEntry handles PATCH .../entries/:entryId
func (h *Handler) UpdateEntry(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	entryID, err := paramID(c, "entryId")
	if err != nil {
		return err
	}
	var patch repo.EntryPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	e, err := h.repo.UpdateEntry(c.UserContext(), projectID, groupID, entryID, patch)
	if err != nil {
		return err
	}
	return ok(c, e)
}

// DeleteEntry handles DELETE .../entries/:entryId
func (h *Handler) DeleteEntry(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	entryID, err := paramID(c, "entryId")
	if err != nil {
		return err
	}
	if err := h.repo.DeleteEntry(c.UserContext(), projectID, groupID, entryID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetTranslation handles PUT .../entries/:entryId/translations
func (h *Handler) SetTranslation(c *fiber.Ctx) error {
	projectID, groupID, err := groupParams(c)
	if err != nil {
		return err
	}
	entryID, err := paramID(c, "entryId")
	if err != nil {
		return err
	}
	var body textBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if err := body.validate(); err != nil {
		return err
	}
	res, err := h.repo.SetTranslation(c.UserContext(), projectID, groupID, entryID, body.LanguageID, body.Text)
	if err != nil {
		return err
	}
	return ok(c, res)
}

// ExportCSV handles GET /api/projects/:projectId/export.csv
func (h *Handler) ExportCSV(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	p, groups, err := h.repo.ProjectCSVData(c.UserContext(), projectID)
	if err != nil {
		return err
	}
	body := export.ProjectCSV(p.Name, groups, p.Languages)
	return download(c, export.CSVFilename(p.Name), "text/csv; charset=utf-8", []byte(body))
}

func groupParams(c *fiber.Ctx) (projectID, groupID int64, err error) {
	if projectID, err = paramID(c, "projectId"); err != nil {
		return 0, 0, err
	}
	if groupID, err = paramID(c, "groupId"); err != nil {
		return 0, 0, err
	}
	return projectID, groupID, nil
}
