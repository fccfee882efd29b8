package middleware

import (
	"boutique/internal/models"
	"boutique/internal/services"
	"boutique/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// LoginPath is where unauthenticated browser requests are sent.
const LoginPath = "/login"

// CombinedAuth admits a request carrying either a live session login or a
// valid token whose user still exists, and redirects to the login page
// otherwise. It never writes to the session or the store.
func CombinedAuth(auth *services.AuthService, sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sessionUser *models.UserSnapshot
		st, err := sessions.Load(c)
		if err != nil {
			log.Error().Err(err).Msg("Session unavailable, falling back to token")
		} else {
			sessionUser = st.User()
		}

		identity, err := auth.ResolveIdentity(sessionUser, ExtractToken(c))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Request not authenticated")
			return c.Redirect(LoginPath, fiber.StatusFound)
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}
