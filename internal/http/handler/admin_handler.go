package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/service"
	"github.com/sifan077/hyperindex/internal/http/middleware"
	"go.uber.org/zap"
)

const maxEventLimit = 200

// AdminDeps groups dependencies required by the moderation handlers.
type AdminDeps struct {
	Logger     *zap.Logger
	Moderation service.ModerationService
	Queries    service.QueryService
}

// AdminHandler exposes the moderation queue and public-copy management.
type AdminHandler struct {
	logger     *zap.Logger
	moderation service.ModerationService
	queries    service.QueryService
}

// NewAdminHandler creates an admin handler with the provided dependencies.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		logger:     logger,
		moderation: deps.Moderation,
		queries:    deps.Queries,
	}
}

// Register wires admin routes onto the provided router. The router is
// expected to already require an administrator.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/pending", h.Pending)
	router.Get("/public", h.Public)
	router.Get("/deleted", h.Deleted)
	router.Get("/events", h.Events)

	entries := router.Group("/entries")
	{
		entries.Get("/", h.Search)
		entries.Get("/:id", h.GetCopy)
		entries.Put("/:id", h.EditCopy)
		entries.Delete("/:id", h.DeleteCopy)
		entries.Post("/:id/approve", h.Approve)
		entries.Post("/:id/reject", h.Reject)
		entries.Post("/:id/restore", h.RestoreCopy)
		entries.Delete("/:id/purge", h.PurgeCopy)
	}
}

// Pending handles GET /api/admin/pending, the review queue.
func (h *AdminHandler) Pending(c *fiber.Ctx) error {
	return h.listing(c, h.moderation.Pending, "failed to list pending entries")
}

// Public handles GET /api/admin/public.
func (h *AdminHandler) Public(c *fiber.Ctx) error {
	return h.listing(c, h.moderation.Public, "failed to list public copies")
}

// Deleted handles GET /api/admin/deleted, most recently deleted first.
func (h *AdminHandler) Deleted(c *fiber.Ctx) error {
	return h.listing(c, h.moderation.Deleted, "failed to list deleted public copies")
}

func (h *AdminHandler) listing(c *fiber.Ctx, load func(context.Context, service.Page) (*service.PageResult, error), msg string) error {
	res, err := load(requestContext(c), pageQuery(c))
	if err != nil {
		return writeError(c, h.logger, msg, err)
	}
	return c.JSON(newPageResponse(res))
}

// Events handles GET /api/admin/events, newest first.
func (h *AdminHandler) Events(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.moderation.RecentEvents(requestContext(c), limit)
	if err != nil {
		return writeError(c, h.logger, "failed to list moderation events", err)
	}
	if events == nil {
		events = []model.ModerationEvent{}
	}
	return c.JSON(fiber.Map{"events": events})
}

// Search handles GET /api/admin/entries across every entry regardless of owner.
func (h *AdminHandler) Search(c *fiber.Ctx) error {
	scope := model.AdminScope()
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
		return writeError(c, h.logger, "failed to search entries", err)
	}
	return c.JSON(newPageResponse(res))
}

// GetCopy handles GET /api/admin/entries/:id.
func (h *AdminHandler) GetCopy(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	entry, err := h.moderation.GetAdminCopy(requestContext(c), entryID)
	if err != nil {
		return writeError(c, h.logger, "failed to get public copy", err)
	}
	return c.JSON(newEntryResponse(entry))
}

// EditCopy handles PUT /api/admin/entries/:id.
func (h *AdminHandler) EditCopy(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	var req EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	entry, err := h.moderation.EditAdminCopy(requestContext(c), entryID, middleware.IdentityFrom(c).UserID, req.input())
	if err != nil {
		return writeError(c, h.logger, "failed to edit public copy", err)
	}
	return c.JSON(newEntryResponse(entry))
}

// Approve handles POST /api/admin/entries/:id/approve and returns the new public copy.
func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	adminID := middleware.IdentityFrom(c).UserID
	copied, err := h.moderation.Approve(requestContext(c), entryID, adminID)
	if err != nil {
		return writeError(c, h.logger, "failed to approve entry", err)
	}

	h.logger.Info("entry approved",
		zap.Int64("entry_id", entryID),
		zap.Int64("public_copy_id", copied.ID),
		zap.Int64("admin_id", adminID),
	)
	return c.Status(fiber.StatusCreated).JSON(newEntryResponse(copied))
}

// Reject handles POST /api/admin/entries/:id/reject.
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.Reject, "failed to reject entry")
}

// DeleteCopy handles DELETE /api/admin/entries/:id.
func (h *AdminHandler) DeleteCopy(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.DeleteAdminCopy, "failed to delete public copy")
}

// RestoreCopy handles POST /api/admin/entries/:id/restore.
func (h *AdminHandler) RestoreCopy(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.RestoreAdminCopy, "failed to restore public copy")
}

// PurgeCopy handles DELETE /api/admin/entries/:id/purge.
func (h *AdminHandler) PurgeCopy(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.PurgeAdminCopy, "failed to purge public copy")
}

func (h *AdminHandler) transition(c *fiber.Ctx, apply func(ctx context.Context, entryID, adminID int64) error, msg string) error {
	entryID, err := entryIDParam(c)
	if err != nil {
		return err
	}

	if err := apply(requestContext(c), entryID, middleware.IdentityFrom(c).UserID); err != nil {
		return writeError(c, h.logger, msg, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
