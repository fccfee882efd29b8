package middleware

import (
	"errors"
	"strings"

	"boutique/internal/apperror"
	"boutique/internal/models"
	"boutique/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// TokenCookie is the cookie consulted when no bearer token is sent.
const TokenCookie = "token"

// Failure codes of the stateless gate.
const (
	CodeTokenMissing = "token_missing"
	CodeTokenExpired = "token_expired"
	CodeTokenInvalid = "token_invalid"
	CodeForbidden    = "forbidden"
)

const (
	identityKey = "identity"
	claimsKey   = "claims"
)

// ExtractToken returns the bearer token of the request, falling back to the
// token cookie when the Authorization header carries no bearer token.
func ExtractToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return c.Cookies(TokenCookie)
}

// TokenRequired verifies the bearer token without consulting the session or
// the store. Missing and expired tokens answer 401, anything else 403.
func TokenRequired(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ValidateToken(ExtractToken(c))
		if err != nil {
			status, code := fiber.StatusForbidden, CodeTokenInvalid
			switch {
			case errors.Is(err, apperror.ErrTokenMissing):
				status, code = fiber.StatusUnauthorized, CodeTokenMissing
			case errors.Is(err, apperror.ErrTokenExpired):
				status, code = fiber.StatusUnauthorized, CodeTokenExpired
			}
			log.Debug().Err(err).Str("path", c.Path()).Msg("JWT validation failed")
			return c.Status(status).JSON(fiber.Map{
				"code":    code,
				"message": err.Error(),
			})
		}

		c.Locals(claimsKey, claims)
		c.Locals(identityKey, services.Identity{
			Source: services.TokenIdentity,
			User: models.UserSnapshot{
				ID:    claims.ID,
				Email: claims.Email,
				Role:  claims.Role,
			},
		})
		return c.Next()
	}
}

// AdminOnly rejects identities without the admin role.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentIdentity(c).User.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"code":    CodeForbidden,
				"message": "admin role required",
			})
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity attached by a gate, or an
// unauthenticated one.
func CurrentIdentity(c *fiber.Ctx) services.Identity {
	if id, ok := c.Locals(identityKey).(services.Identity); ok {
		return id
	}
	return services.Identity{}
}

// TokenClaims returns the verified claims of the stateless gate.
func TokenClaims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(claimsKey).(*services.Claims)
	return claims
}
