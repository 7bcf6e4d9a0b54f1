package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/service"
	"github.com/sifan077/hyperindex/internal/http/middleware"
	httpUtil "github.com/sifan077/hyperindex/internal/http/util"
	"github.com/stretchr/testify/require"
)

var errUnexpectedCall = errors.New("unexpected call")

type mockEntryService struct {
	createFn  func(ctx context.Context, ownerID int64, input service.EntryInput) (*model.Entry, error)
	getFn     func(ctx context.Context, entryID, ownerID int64) (*model.Entry, error)
	updateFn  func(ctx context.Context, entryID, callerID int64, input service.EntryInput) (*model.Entry, error)
	deleteFn  func(ctx context.Context, entryID, callerID int64) error
	restoreFn func(ctx context.Context, entryID, callerID int64) error
	submitFn  func(ctx context.Context, entryID, ownerID int64) error
	tagsFn    func(ctx context.Context, ownerID int64) ([]string, error)
}

func (m *mockEntryService) CreateEntry(ctx context.Context, ownerID int64, input service.EntryInput) (*model.Entry, error) {
	if m.createFn == nil {
		return nil, errUnexpectedCall
	}
	return m.createFn(ctx, ownerID, input)
}

func (m *mockEntryService) GetEntry(ctx context.Context, entryID, ownerID int64) (*model.Entry, error) {
	if m.getFn == nil {
		return nil, errUnexpectedCall
	}
	return m.getFn(ctx, entryID, ownerID)
}

func (m *mockEntryService) UpdateEntry(ctx context.Context, entryID, callerID int64, input service.EntryInput) (*model.Entry, error) {
	if m.updateFn == nil {
		return nil, errUnexpectedCall
	}
	return m.updateFn(ctx, entryID, callerID, input)
}

func (m *mockEntryService) SoftDeleteEntry(ctx context.Context, entryID, callerID int64) error {
	if m.deleteFn == nil {
		return errUnexpectedCall
	}
	return m.deleteFn(ctx, entryID, callerID)
}

func (m *mockEntryService) RestoreEntry(ctx context.Context, entryID, callerID int64) error {
	if m.restoreFn == nil {
		return errUnexpectedCall
	}
	return m.restoreFn(ctx, entryID, callerID)
}

func (m *mockEntryService) SubmitForReview(ctx context.Context, entryID, ownerID int64) error {
	if m.submitFn == nil {
		return errUnexpectedCall
	}
	return m.submitFn(ctx, entryID, ownerID)
}

func (m *mockEntryService) UserTags(ctx context.Context, ownerID int64) ([]string, error) {
	if m.tagsFn == nil {
		return nil, errUnexpectedCall
	}
	return m.tagsFn(ctx, ownerID)
}

type mockQueryService struct {
	listFn   func(ctx context.Context, scope model.Scope, tag string, page service.Page) (*service.PageResult, error)
	searchFn func(ctx context.Context, scope model.Scope, text, tag string, page service.Page) (*service.PageResult, error)
}

func (m *mockQueryService) ListEntries(ctx context.Context, scope model.Scope, tag string, page service.Page) (*service.PageResult, error) {
	if m.listFn == nil {
		return nil, errUnexpectedCall
	}
	return m.listFn(ctx, scope, tag, page)
}

func (m *mockQueryService) SearchEntries(ctx context.Context, scope model.Scope, text, tag string, page service.Page) (*service.PageResult, error) {
	if m.searchFn == nil {
		return nil, errUnexpectedCall
	}
	return m.searchFn(ctx, scope, text, tag, page)
}

type mockModerationService struct {
	approveFn func(ctx context.Context, entryID, adminID int64) (*model.Entry, error)
	rejectFn  func(ctx context.Context, entryID, adminID int64) error
	getFn     func(ctx context.Context, entryID int64) (*model.Entry, error)
	editFn    func(ctx context.Context, entryID, adminID int64, input service.EntryInput) (*model.Entry, error)
	deleteFn  func(ctx context.Context, entryID, adminID int64) error
	restoreFn func(ctx context.Context, entryID, adminID int64) error
	purgeFn   func(ctx context.Context, entryID, adminID int64) error
	pendingFn func(ctx context.Context, page service.Page) (*service.PageResult, error)
	publicFn  func(ctx context.Context, page service.Page) (*service.PageResult, error)
	deletedFn func(ctx context.Context, page service.Page) (*service.PageResult, error)
	eventsFn  func(ctx context.Context, limit int) ([]model.ModerationEvent, error)
}

func (m *mockModerationService) Approve(ctx context.Context, entryID, adminID int64) (*model.Entry, error) {
	if m.approveFn == nil {
		return nil, errUnexpectedCall
	}
	return m.approveFn(ctx, entryID, adminID)
}

func (m *mockModerationService) Reject(ctx context.Context, entryID, adminID int64) error {
	if m.rejectFn == nil {
		return errUnexpectedCall
	}
	return m.rejectFn(ctx, entryID, adminID)
}

func (m *mockModerationService) GetAdminCopy(ctx context.Context, entryID int64) (*model.Entry, error) {
	if m.getFn == nil {
		return nil, errUnexpectedCall
	}
	return m.getFn(ctx, entryID)
}

func (m *mockModerationService) EditAdminCopy(ctx context.Context, entryID, adminID int64, input service.EntryInput) (*model.Entry, error) {
	if m.editFn == nil {
		return nil, errUnexpectedCall
	}
	return m.editFn(ctx, entryID, adminID, input)
}

func (m *mockModerationService) DeleteAdminCopy(ctx context.Context, entryID, adminID int64) error {
	if m.deleteFn == nil {
		return errUnexpectedCall
	}
	return m.deleteFn(ctx, entryID, adminID)
}

func (m *mockModerationService) RestoreAdminCopy(ctx context.Context, entryID, adminID int64) error {
	if m.restoreFn == nil {
		return errUnexpectedCall
	}
	return m.restoreFn(ctx, entryID, adminID)
}

func (m *mockModerationService) PurgeAdminCopy(ctx context.Context, entryID, adminID int64) error {
	if m.purgeFn == nil {
		return errUnexpectedCall
	}
	return m.purgeFn(ctx, entryID, adminID)
}

func (m *mockModerationService) Pending(ctx context.Context, page service.Page) (*service.PageResult, error) {
	if m.pendingFn == nil {
		return nil, errUnexpectedCall
	}
	return m.pendingFn(ctx, page)
}

func (m *mockModerationService) Public(ctx context.Context, page service.Page) (*service.PageResult, error) {
	if m.publicFn == nil {
		return nil, errUnexpectedCall
	}
	return m.publicFn(ctx, page)
}

func (m *mockModerationService) Deleted(ctx context.Context, page service.Page) (*service.PageResult, error) {
	if m.deletedFn == nil {
		return nil, errUnexpectedCall
	}
	return m.deletedFn(ctx, page)
}

func (m *mockModerationService) RecentEvents(ctx context.Context, limit int) ([]model.ModerationEvent, error) {
	if m.eventsFn == nil {
		return nil, errUnexpectedCall
	}
	return m.eventsFn(ctx, limit)
}

var testVerifier = httpUtil.NewTokenVerifier([]byte("handler-secret"), time.Hour)

// newTestApp mounts the handlers the way the server does.
func newTestApp(entries *mockEntryService, queries *mockQueryService, moderation *mockModerationService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Use(middleware.Identity(middleware.IdentityConfig{Verifier: testVerifier}))

	NewDirectoryHandler(DirectoryDeps{Queries: queries}).Register(app)

	api := app.Group("/api", middleware.RequireUser())
	NewEntryHandler(EntryDeps{Entries: entries, Queries: queries}).Register(api)

	admin := app.Group("/api/admin", middleware.RequireAdmin())
	NewAdminHandler(AdminDeps{Moderation: moderation, Queries: queries}).Register(admin)
	return app
}

func tokenFor(t *testing.T, identity model.Identity) string {
	t.Helper()
	token, err := testVerifier.Issue(identity)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path, token, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func samplePage(items ...model.Entry) *service.PageResult {
	return &service.PageResult{
		Items:      items,
		Total:      int64(len(items)),
		Page:       1,
		PerPage:    10,
		TotalPages: 1,
	}
}
