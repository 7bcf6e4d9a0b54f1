package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/service"
	"github.com/sifan077/hyperindex/internal/http/middleware"
	"go.uber.org/zap"
)

// EntryDeps groups dependencies required by the owner entry handlers.
type EntryDeps struct {
	Logger  *zap.Logger
	Entries service.EntryService
	Queries service.QueryService
}

// EntryHandler serves a signed-in user's own entries.
type EntryHandler struct {
	logger  *zap.Logger
	entries service.EntryService
	queries service.QueryService
}

// NewEntryHandler creates an entry handler with the provided dependencies.
func NewEntryHandler(deps EntryDeps) *EntryHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryHandler{
		logger:  logger,
		entries: deps.Entries,
		queries: deps.Queries,
	}
}

// Register wires owner routes onto the provided router. The router is
// expected to already require a signed-in user.
func (h *EntryHandler) Register(router fiber.Router) {
	entries := router.Group("/entries")
	{
		entries.Get("/", h.ListEntries)
		entries.Post("/", h.CreateEntry)
		entries.Get("/:id", h.GetEntry)
		entries.Put("/:id", h.UpdateEntry)
		entries.Delete("/:id", h.DeleteEntry)
		entries.Post("/:id/restore", h.RestoreEntry)
		entries.Post("/:id/submit", h.SubmitEntry)
	}
	router.Get("/tags", h.ListTags)
}

// ListEntries handles GET /api/entries. A non-empty q switches to full-text search.
func (h *EntryHandler) ListEntries(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	scope := model.OwnerScope(id.UserID)
	tag := strings.TrimSpace(c.Query("tag"))
	text := strings.TrimSpace(c.Query("q"))

	var (
		res *service.PageResult
		err error
	)
	if text != "" {
		res, err = h.queries.SearchEntries(requestContext(c), scope, text, tag, pageQuery(c))
	} else {
		res, err = h.queries.ListEntries(requestContext(c), scope, tag, pageQuery(c))
	}
	if err != nil {
		return writeError(c, h.logger, "failed to list entries", err)
	}
	return c.JSON(newPageResponse(res))
}

// CreateEntry handles POST /api/entries.
func (h *EntryHandler) CreateEntry(c *fiber.Ctx) error {
	var req EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	id := middleware.IdentityFrom(c)
	entry, err := h.entries.CreateEntry(requestContext(c), id.UserID, req.input())
	if err != nil {
		return writeError(c, h.logger, "failed to create entry", err)
	}

	h.logger.Info("entry created",
		zap.Int64("entry_id", entry.ID),
		zap.Int64("user_id", id.UserID),
	)
	return c.Status(fiber.StatusCreated).JSON(newEntryResponse(entry))
}

// GetEntry handles GET /api/entries/:id.
func (h *EntryHandler) GetEntry(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	entry, err := h.entries.GetEntry(requestContext(c), entryID, middleware.IdentityFrom(c).UserID)
	if err != nil {
		return writeError(c, h.logger, "failed to get entry", err)
	}
	return c.JSON(newEntryResponse(entry))
}

// UpdateEntry handles PUT /api/entries/:id.
func (h *EntryHandler) UpdateEntry(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	var req EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	entry, err := h.entries.UpdateEntry(requestContext(c), entryID, middleware.IdentityFrom(c).UserID, req.input())
	if err != nil {
		return writeError(c, h.logger, "failed to update entry", err)
	}
	return c.JSON(newEntryResponse(entry))
}

// DeleteEntry handles DELETE /api/entries/:id as a soft delete.
func (h *EntryHandler) DeleteEntry(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	if err := h.entries.SoftDeleteEntry(requestContext(c), entryID, middleware.IdentityFrom(c).UserID); err != nil {
		return writeError(c, h.logger, "failed to delete entry", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreEntry handles POST /api/entries/:id/restore.
func (h *EntryHandler) RestoreEntry(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	if err := h.entries.RestoreEntry(requestContext(c), entryID, middleware.IdentityFrom(c).UserID); err != nil {
		return writeError(c, h.logger, "failed to restore entry", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SubmitEntry handles POST /api/entries/:id/submit.
func (h *EntryHandler) SubmitEntry(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	if err := h.entries.SubmitForReview(requestContext(c), entryID, middleware.IdentityFrom(c).UserID); err != nil {
		return writeError(c, h.logger, "failed to submit entry", err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// ListTags handles GET /api/tags.
func (h *EntryHandler) ListTags(c *fiber.Ctx) error {
	tags, err := h.entries.UserTags(requestContext(c), middleware.IdentityFrom(c).UserID)
	if err != nil {
		return writeError(c, h.logger, "failed to list tags", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return c.JSON(fiber.Map{"tags": tags})
}
