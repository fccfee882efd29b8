package handlers

import (
	"errors"
	"time"

	"boutique/internal/middleware"
	"boutique/internal/upload"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// storeAvatar saves the optional profile picture of the request. It returns
// an empty path when no file was sent.
func storeAvatar(c *fiber.Ctx, uploader *upload.Uploader) (string, error) {
	fh, err := c.FormFile(upload.FieldName)
	if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return uploader.Save(c.UserContext(), fh)
}

// discardAvatar removes an upload whose owning operation failed.
func discardAvatar(uploader *upload.Uploader, path string) {
	if path == "" {
		return
	}
	if err := uploader.Remove(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Could not remove discarded upload")
	}
}

// CookieConfig controls the token cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

func setTokenCookie(c *fiber.Ctx, cfg CookieConfig, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		Expires:  time.Now().Add(cfg.TTL),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// clearTokenCookie expires the token cookie under the attributes setTokenCookie
// used, so user agents drop the same cookie.
func clearTokenCookie(c *fiber.Ctx, cfg CookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
