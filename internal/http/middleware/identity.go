package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/hyperindex/internal/app/model"
	httpUtil "github.com/sifan077/hyperindex/internal/http/util"
	"go.uber.org/zap"
)

const (
	identityKey         = "identity"
	DefaultCookieName   = "access_token"
	authorizationPrefix = "Bearer "
)

// IdentityConfig configures token resolution.
type IdentityConfig struct {
	Verifier   *httpUtil.TokenVerifier
	CookieName string
	Logger     *zap.Logger
}

// Identity resolves the caller from the auth cookie or a bearer token.
// Requests without a valid token continue as anonymous.
func Identity(cfg IdentityConfig) fiber.Handler {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, authorizationPrefix) {
				token = strings.TrimPrefix(header, authorizationPrefix)
			}
		}
		if token == "" || cfg.Verifier == nil {
			return c.Next()
		}

		identity, err := cfg.Verifier.Verify(token)
		if err != nil {
			if errors.Is(err, httpUtil.ErrMissingSecret) {
				logger.Warn("identity token received but no secret configured")
			} else {
				logger.Debug("ignoring invalid identity token", zap.Error(err))
			}
			return c.Next()
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// IdentityFrom returns the resolved caller, or an anonymous identity.
func IdentityFrom(c *fiber.Ctx) model.Identity {
	if identity, ok := c.Locals(identityKey).(model.Identity); ok {
		return identity
	}
	return model.Identity{}
}

// RequireUser rejects anonymous callers.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IdentityFrom(c).Anonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin flag.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFrom(c)
		if identity.Anonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		if !identity.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		return c.Next()
	}
}
