package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/hyperindex/internal/app/service"
	inthttp "github.com/sifan077/hyperindex/internal/http/handler"
	"github.com/sifan077/hyperindex/internal/http/middleware"
	httpUtil "github.com/sifan077/hyperindex/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles what the HTTP server needs to serve requests.
type Dependencies struct {
	Logger     *zap.Logger
	Redis      *redis.Client
	Tokens     *httpUtil.TokenVerifier
	CookieName string
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
	// RateLimit is requests per minute per caller; zero disables limiting.
	RateLimit int

	Entries    service.EntryService
	Queries    service.QueryService
	Moderation service.ModerationService
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "hyperindex",
		ErrorHandler: inthttp.ErrorHandler(deps.Logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Identity(middleware.IdentityConfig{
		Verifier:   s.deps.Tokens,
		CookieName: s.deps.CookieName,
		Logger:     s.deps.Logger,
	}))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS(s.deps.CORSOrigins))

	if s.deps.Redis != nil && s.deps.RateLimit > 0 {
		limit := middleware.DefaultRateLimitConfig()
		limit.MaxRequests = s.deps.RateLimit
		s.app.Use(middleware.RateLimit(s.deps.Redis, limit, s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	directoryHandler := inthttp.NewDirectoryHandler(inthttp.DirectoryDeps{
		Logger:  s.deps.Logger,
		Queries: s.deps.Queries,
	})
	directoryHandler.Register(s.app)

	api := s.app.Group("/api", middleware.RequireUser())

	adminHandler := inthttp.NewAdminHandler(inthttp.AdminDeps{
		Logger:     s.deps.Logger,
		Moderation: s.deps.Moderation,
		Queries:    s.deps.Queries,
	})
	adminHandler.Register(api.Group("/admin", middleware.RequireAdmin()))

	entryHandler := inthttp.NewEntryHandler(inthttp.EntryDeps{
		Logger:  s.deps.Logger,
		Entries: s.deps.Entries,
		Queries: s.deps.Queries,
	})
	entryHandler.Register(api)
}
