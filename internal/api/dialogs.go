package api

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/lint"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
)

func dialogParams(c *fiber.Ctx) (projectID int64, dialogID string, err error) {
	if projectID, err = paramID(c, "projectId"); err != nil {
		return 0, "", err
	}
	dialogID = c.Params("dialogId")
	if dialogID == "" {
		return 0, "", BadRequestError("Missing dialogId")
	}
	return projectID, dialogID, nil
}

// ListDialogs handles GET /api/projects/:projectId/dialogs
func (h *Handler) ListDialogs(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	dialogs, err := h.repo.ListDialogs(c.UserContext(), projectID)
	if err != nil {
		return err
	}
	return ok(c, dialogs)
}

// CreateDialog handles POST /api/projects/:projectId/dialogs
func (h *Handler) CreateDialog(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	var in repo.DialogInput
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.repo.CreateDialog(c.UserContext(), projectID, in)
	if err != nil {
		return err
	}
	return created(c, d)
}

// GetDialog handles GET .../dialogs/:dialogId
func (h *Handler) GetDialog(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	d, err := h.repo.GetDialog(c.UserContext(), projectID, dialogID)
	if err != nil {
		return err
	}
	return ok(c, d)
}

// UpdateDialog handles PATCH .../dialogs/:dialogId
func (h *Handler) UpdateDialog(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	var patch repo.DialogPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	d, err := h.repo.UpdateDialog(c.UserContext(), projectID, dialogID, patch)
	if err != nil {
		return err
	}
	return ok(c, d)
}

// DeleteDialog handles DELETE .../dialogs/:dialogId
func (h *Handler) DeleteDialog(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	if err := h.repo.DeleteDialog(c.UserContext(), projectID, dialogID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportDialog handles GET .../dialogs/:dialogId/export
func (h *Handler) ExportDialog(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	b, err := h.repo.DialogExport(c.UserContext(), projectID, dialogID)
	if err != nil {
		return err
	}
	body, err := export.Marshal(b.Document())
	if err != nil {
		return err
	}
	return download(c, export.Filename(dialogID), fiber.MIMEApplicationJSONCharsetUTF8, body)
}

// ExportZip handles GET /api/projects/:projectId/dialogs/export.zip
func (h *Handler) ExportZip(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	p, bundles, err := h.repo.ProjectDialogExports(c.UserContext(), projectID)
	if err != nil {
		return err
	}
	now := time.Now()
	var buf bytes.Buffer
	if err := export.WriteProjectZip(&buf, repo.ExportFiles(bundles), now); err != nil {
		return err
	}
	return download(c, export.ZipFilename(p.Name, now), "application/zip", buf.Bytes())
}

// ImportDialog handles POST .../dialogs/:dialogId/import
func (h *Handler) ImportDialog(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	doc, err := export.ParseDocument(c.Body())
	if err != nil {
		return BadRequestError(err.Error())
	}
	imported, err := h.repo.ImportDialog(c.UserContext(), projectID, dialogID, doc)
	if err != nil {
		return err
	}
	d, err := h.repo.GetDialog(c.UserContext(), projectID, dialogID)
	if err != nil {
		return err
	}
	unresolved := imported.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	return c.JSON(fiber.Map{"data": d, "meta": fiber.Map{"unresolved": unresolved}})
}

// DialogSectionIDs handles GET /api/projects/:projectId/dialog-sections
func (h *Handler) DialogSectionIDs(c *fiber.Ctx) error {
	projectID, err := paramID(c, "projectId")
	if err != nil {
		return err
	}
	ids, err := h.repo.DialogSectionIDs(c.UserContext(), projectID)
	if err != nil {
		return err
	}
	return ok(c, ids)
}

// Lint handles GET .../dialogs/:dialogId/lint
func (h *Handler) Lint(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	b, err := h.repo.DialogExport(ctx, projectID, dialogID)
	if err != nil {
		return err
	}
	sections, err := h.repo.DialogSectionIDs(ctx, projectID)
	if err != nil {
		return err
	}
	findings := h.catalogue.Check(lint.Input{
		Dialog:          b.Dialog,
		Group:           b.Group,
		ProjectSections: sections,
		Policy:          h.repo.Policy(),
	})
	if findings == nil {
		findings = []lint.Finding{}
	}
	return c.JSON(fiber.Map{"data": findings, "meta": fiber.Map{"errors": lint.HasErrors(findings)}})
}

// CreateSection handles POST .../dialogs/:dialogId/sections
func (h *Handler) CreateSection(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	var in repo.SectionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.repo.CreateSection(c.UserContext(), projectID, dialogID, in)
	if err != nil {
		return err
	}
	return created(c, s)
}

// UpdateSection handles PATCH .../sections/:sectionId
func (h *Handler) UpdateSection(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return err
	}
	var patch repo.SectionPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	s, err := h.repo.UpdateSection(c.UserContext(), projectID, dialogID, sectionID, patch)
	if err != nil {
		return err
	}
	return ok(c, s)
}

// DeleteSection handles DELETE .../sections/:sectionId
func (h *Handler) DeleteSection(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return err
	}
	if err := h.repo.DeleteSection(c.UserContext(), projectID, dialogID, sectionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateLine handles POST .../sections/:sectionId/lines
func (h *Handler) CreateLine(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return err
	}
	var in repo.LineInput
	if err := bind(c, &in); err != nil {
		return err
	}
	l, err := h.repo.CreateLine(c.UserContext(), projectID, dialogID, sectionID, in)
	if err != nil {
		return err
	}
	return created(c, l)
}

// ReorderLines handles PATCH .../sections/:sectionId/lines/reorder
func (h *Handler) ReorderLines(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return err
	}
	var body struct {
		LineIDs []int64 `json:"lineIds"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.repo.ReorderLines(ctx, projectID, dialogID, sectionID, body.LineIDs); err != nil {
		return err
	}
	s, err := h.repo.GetSection(ctx, projectID, dialogID, sectionID)
	if err != nil {
		return err
	}
	return ok(c, s)
}

// UpdateLine handles PATCH .../lines/:lineId
func (h *Handler) UpdateLine(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c, "lineId")
	if err != nil {
		return err
	}
	var patch repo.LinePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	l, err := h.repo.UpdateLine(c.UserContext(), projectID, dialogID, lineID, patch)
	if err != nil {
		return err
	}
	return ok(c, l)
}

// DeleteLine handles DELETE .../lines/:lineId
func (h *Handler) DeleteLine(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c, "lineId")
	if err != nil {
		return err
	}
	if err := h.repo.DeleteLine(c.UserContext(), projectID, dialogID, lineID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetLineText handles PUT .../lines/:lineId/text
func (h *Handler) SetLineText(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c, "lineId")
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
	res, err := h.repo.SetLineText(c.UserContext(), projectID, dialogID, lineID, body.LanguageID, body.Text)
	if err != nil {
		return err
	}
	return ok(c, res)
}

// SetOptionText handles PUT .../lines/:lineId/options/:index/text
func (h *Handler) SetOptionText(c *fiber.Ctx) error {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c, "lineId")
	if err != nil {
		return err
	}
	index, err := c.ParamsInt("index", -1)
	if err != nil {
		return BadRequestError("Invalid index")
	}
	var body textBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if err := body.validate(); err != nil {
		return err
	}
	res, err := h.repo.SetOptionText(c.UserContext(), projectID, dialogID, lineID, index, body.LanguageID, body.Text)
	if err != nil {
		return err
	}
	return ok(c, res)
}
