package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
)

// ListLanguages handles GET /api/languages
func (h *Handler) ListLanguages(c *fiber.Ctx) error {
	langs, err := h.repo.ListLanguages(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, langs)
}

// CreateLanguage handles POST /api/languages
func (h *Handler) CreateLanguage(c *fiber.Ctx) error {
	var in repo.LanguageInput
	if err := bind(c, &in); err != nil {
		return err
	}
	l, err := h.repo.CreateLanguage(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, l)
}

// UpdateLanguage handles PATCH /api/languages/:id
func (h *Handler) UpdateLanguage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var patch repo.LanguagePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	l, err := h.repo.UpdateLanguage(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return ok(c, l)
}

// DeleteLanguage handles DELETE /api/languages/:id
func (h *Handler) DeleteLanguage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.repo.DeleteLanguage(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListProjects handles GET /api/projects
func (h *Handler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.repo.ListProjects(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, projects)
}

// CreateProject handles POST /api/projects
func (h *Handler) CreateProject(c *fiber.Ctx) error {
	var in repo.ProjectInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.repo.CreateProject(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, p)
}

// GetProject handles GET /api/projects/:projectId
func (h *Handler) GetProject(c *fiber.Ctx) error {
	id, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	p, err := h.repo.GetProject(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, p)
}

// UpdateProject handles PATCH /api/projects/:projectId
func (h *Handler) UpdateProject(c *fiber.Ctx) error {
	id, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	var patch repo.ProjectPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	p, err := h.repo.UpdateProject(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return ok(c, p)
}

// DeleteProject handles DELETE /api/projects/:projectId
func (h *Handler) DeleteProject(c *fiber.Ctx) error {
	id, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	if err := h.repo.DeleteProject(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AttachLanguage handles POST /api/projects/:projectId/languages/:languageId
func (h *Handler) AttachLanguage(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	languageID, err := paramID(c, "languageId")
	if err != nil {
		return err
	}
	if err := h.repo.AttachLanguage(c.UserContext(), projectID, languageID); err != nil {
		return err
	}
	langs, err := h.repo.ProjectLanguages(c.UserContext(), projectID)
	if err != nil {
		return err
	}
	return ok(c, langs)
}

// DetachLanguage handles DELETE /api/projects/:projectId/languages/:languageId
func (h *Handler) DetachLanguage(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	languageID, err := paramID(c, "languageId")
	if err != nil {
		return err
	}
	if err := h.repo.DetachLanguage(c.UserContext(), projectID, languageID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
