package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/service"
	"go.uber.org/zap"
)

const serviceName = "hyperindex"

// DirectoryDeps groups dependencies required by the public handlers.
type DirectoryDeps struct {
	Logger  *zap.Logger
	Queries service.QueryService
}

// DirectoryHandler serves the anonymous surface: health and the public directory.
type DirectoryHandler struct {
	logger  *zap.Logger
	queries service.QueryService
}

// NewDirectoryHandler creates a directory handler with the provided dependencies.
func NewDirectoryHandler(deps DirectoryDeps) *DirectoryHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryHandler{
		logger:  logger,
		queries: deps.Queries,
	}
}

// Register wires public routes onto the provided router.
func (h *DirectoryHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/api/directory", h.Directory)
}

// Health is a simple endpoint so we know the service is running.
func (h *DirectoryHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Directory handles GET /api/directory, listing or searching public copies.
func (h *DirectoryHandler) Directory(c *fiber.Ctx) error {
	scope := model.PublicScope()
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
		return writeError(c, h.logger, "failed to load directory", err)
	}
	return c.JSON(newPageResponse(res))
}
