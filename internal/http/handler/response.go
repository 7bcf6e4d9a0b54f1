package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/service"
	"github.com/sifan077/hyperindex/internal/http/middleware"
	"go.uber.org/zap"
)

// EntryRequest is the body accepted when creating or editing an entry.
// Tags may be sent as a JSON array, as a comma-separated string, or both.
type EntryRequest struct {
	URL     string   `json:"url" form:"url"`
	Title   string   `json:"title" form:"title"`
	Notes   string   `json:"notes" form:"notes"`
	Tags    []string `json:"tags" form:"-"`
	TagList string   `json:"tag_list" form:"tags"`
}

func (r EntryRequest) input() service.EntryInput {
	tags := append([]string{}, r.Tags...)
	tags = append(tags, service.ParseTagList(r.TagList)...)
	return service.EntryInput{
		URL:   r.URL,
		Title: r.Title,
		Notes: r.Notes,
		Tags:  tags,
	}
}

// EntryResponse is the wire form of an entry.
type EntryResponse struct {
	ID                 int64      `json:"id"`
	URL                string     `json:"url"`
	Title              string     `json:"title"`
	Notes              string     `json:"notes"`
	Tags               []string   `json:"tags"`
	OwnerID            int64      `json:"owner_id"`
	IsPublicCopy       bool       `json:"is_public_copy"`
	SubmittedForReview bool       `json:"submitted_for_review"`
	IsDeleted          bool       `json:"is_deleted"`
	DeletedAt          *time.Time `json:"deleted_at"`
	OriginalID         *int64     `json:"original_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func newEntryResponse(e *model.Entry) EntryResponse {
	return EntryResponse{
		ID:                 e.ID,
		URL:                e.URL,
		Title:              e.Title,
		Notes:              e.Notes,
		Tags:               e.TagNames(),
		OwnerID:            e.UserID,
		IsPublicCopy:       e.IsPublicCopy,
		SubmittedForReview: e.SubmittedForReview,
		IsDeleted:          e.IsDeleted,
		DeletedAt:          e.DeletedAt,
		OriginalID:         e.OriginalID,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// PageResponse is one page of entries with navigation metadata.
type PageResponse struct {
	Items      []EntryResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
	HasPrev    bool            `json:"has_prev"`
	HasNext    bool            `json:"has_next"`
}

func newPageResponse(res *service.PageResult) PageResponse {
	items := make([]EntryResponse, len(res.Items))
	for i := range res.Items {
		items[i] = newEntryResponse(&res.Items[i])
	}
	return PageResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalPages: res.TotalPages,
		HasPrev:    res.HasPrev,
		HasNext:    res.HasNext,
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func pageQuery(c *fiber.Ctx) service.Page {
	return service.Page{
		Number:  c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 0),
	}
}

var (
	errBadEntryID = fiber.NewError(fiber.StatusBadRequest, "entry id must be a positive integer")
	errBadBody    = fiber.NewError(fiber.StatusBadRequest, "invalid request body")
)

func entryIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errBadEntryID
	}
	return int64(id), nil
}

// ErrorHandler renders errors that escape a handler, including fiber's own
// routing errors, as JSON.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return writeError(c, logger, "unhandled request error", err)
	}
}

// writeError maps service errors onto HTTP responses.
func writeError(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	status, text := fiber.StatusInternalServerError, "internal server error"

	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		status, text = fiber.StatusUnprocessableEntity, vErr.Error()
	case errors.Is(err, service.ErrNotFound):
		status, text = fiber.StatusNotFound, "entry not found"
	case errors.Is(err, service.ErrInvalidState):
		status, text = fiber.StatusConflict, "operation not allowed in the entry's current state"
	case errors.Is(err, service.ErrStorageUnavailable):
		status, text = fiber.StatusServiceUnavailable, "storage unavailable"
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("request_id", middleware.RequestIDFrom(c)),
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error(msg, fields...)
	} else {
		logger.Debug(msg, fields...)
	}

	return c.Status(status).JSON(fiber.Map{"error": text})
}
