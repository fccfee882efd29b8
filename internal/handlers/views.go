package handlers

import (
	"boutique/internal/middleware"
	"boutique/internal/models"
	"boutique/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Page is the view model every browser route responds with.
type Page struct {
	View        string               `json:"view"`
	Title       string               `json:"title,omitempty"`
	CurrentUser *models.UserSnapshot `json:"currentUser"`
	Flash       session.Flashes      `json:"flash,omitempty"`
	Data        interface{}          `json:"data,omitempty"`
}

// Guards are the auth middlewares handlers attach to their routes.
type Guards struct {
	Browser fiber.Handler // combined session/token gate
	Token   fiber.Handler // stateless token gate
	Admin   fiber.Handler // admin role, after Token
}

// Renderer builds pages and redirects that carry flash messages.
type Renderer struct {
	sessions *session.Manager
}

// NewRenderer creates a new Renderer.
func NewRenderer(sessions *session.Manager) *Renderer {
	return &Renderer{sessions: sessions}
}

func (r *Renderer) state(c *fiber.Ctx) *session.State {
	st, err := r.sessions.Load(c)
	if err != nil {
		log.Error().Err(err).Str("path", c.Path()).Msg("Session unavailable")
		return nil
	}
	return st
}

// Render responds with a page. The current user is the gate's identity, or
// the session login on public pages. Pending flashes are consumed.
func (r *Renderer) Render(c *fiber.Ctx, status int, view, title string, data interface{}) error {
	page := Page{View: view, Title: title, Data: data}

	st := r.state(c)
	if id := middleware.CurrentIdentity(c); id.Authenticated() {
		u := id.User
		page.CurrentUser = &u
	} else if st != nil {
		page.CurrentUser = st.User()
	}
	if st != nil {
		page.Flash = st.TakeFlashes()
	}
	return c.Status(status).JSON(page)
}

// Flash queues a message for the next page.
func (r *Renderer) Flash(c *fiber.Ctx, kind, message string) {
	if st := r.state(c); st != nil {
		st.AddFlash(kind, message)
	}
}

// Redirect queues a flash and redirects to location.
func (r *Renderer) Redirect(c *fiber.Ctx, location, kind, message string) error {
	if message != "" {
		r.Flash(c, kind, message)
	}
	return c.Redirect(location, fiber.StatusFound)
}

// Back queues a flash and redirects to the referring page, or fallback.
func (r *Renderer) Back(c *fiber.Ctx, fallback, kind, message string) error {
	if message != "" {
		r.Flash(c, kind, message)
	}
	return c.RedirectBack(fallback, fiber.StatusFound)
}
