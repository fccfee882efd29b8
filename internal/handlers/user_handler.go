package handlers

import (
	"errors"
	"strings"

	"boutique/internal/apperror"
	"boutique/internal/middleware"
	"boutique/internal/services"
	"boutique/internal/session"
	"boutique/internal/upload"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// UserHandler handles the user pages and profile management.
type UserHandler struct {
	service  *services.UserService
	sessions *session.Manager
	views    *Renderer
	uploader *upload.Uploader
	cookies  CookieConfig
	guards   Guards
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, sessions *session.Manager, views *Renderer, uploader *upload.Uploader, cookies CookieConfig, guards Guards) *UserHandler {
	return &UserHandler{
		service:  service,
		sessions: sessions,
		views:    views,
		uploader: uploader,
		cookies:  cookies,
		guards:   guards,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.guards.Browser, h.HandleIndex)
	router.Get("/me", h.guards.Browser, h.HandleMe)

	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleGetUsers)
	userRoutes.Get("/edit/:id", h.guards.Browser, h.HandleEditPage)
	userRoutes.Post("/edit/:id", h.guards.Browser, h.HandleEdit)
	userRoutes.Get("/:id", h.HandleGetUserByID)
	userRoutes.Delete("/:id", h.guards.Browser, h.HandleDeleteUser)
}

// HandleIndex renders the home page.
func (h *UserHandler) HandleIndex(c *fiber.Ctx) error {
	return h.views.Render(c, fiber.StatusOK, "index", "Home", nil)
}

// HandleMe renders the home page with every other user.
func (h *UserHandler) HandleMe(c *fiber.Ctx) error {
	users, err := h.service.GetOtherUsers(middleware.CurrentIdentity(c).User.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error getting users")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve users",
		})
	}
	return h.views.Render(c, fiber.StatusOK, "index", "Home", fiber.Map{"users": users})
}

// HandleGetUsers renders the list of all users.
func (h *UserHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.service.GetAllUsers()
	if err != nil {
		log.Error().Err(err).Msg("Error getting all users")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve users",
		})
	}
	return h.views.Render(c, fiber.StatusOK, "users", "Users", fiber.Map{"users": users})
}

// HandleGetUserByID returns a single user as JSON.
func (h *UserHandler) HandleGetUserByID(c *fiber.Ctx) error {
	user, err := h.service.GetUserByID(c.Params("id"))
	if err != nil {
		return apiError(c, err, "Could not retrieve user")
	}
	return c.JSON(user)
}

// HandleDeleteUser deletes an account. Deleting one's own account ends the
// session and clears the token cookie.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	actor := middleware.CurrentIdentity(c).User
	id := c.Params("id")

	deleted, err := h.service.DeleteUser(actor, id)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return h.views.Redirect(c, "/", session.FlashError, "User not found")
		case errors.Is(err, apperror.ErrForbidden):
			return h.views.Redirect(c, "/", session.FlashError, "You cannot delete another user's account")
		}
		log.Error().Err(err).Str("user_id", id).Msg("Error deleting user")
		return h.views.Redirect(c, "/", session.FlashError, "Error while deleting the user")
	}

	if deleted.ID == actor.ID {
		st, err := h.sessions.Load(c)
		if err == nil {
			err = st.Destroy()
		}
		if err != nil {
			log.Error().Err(err).Msg("Error destroying session of deleted user")
		}
		clearTokenCookie(c, h.cookies)
		return c.Redirect("/register", fiber.StatusFound)
	}
	return h.views.Redirect(c, "/", session.FlashSuccess, "User deleted successfully")
}

// HandleEditPage renders the profile form of the current user.
func (h *UserHandler) HandleEditPage(c *fiber.Ctx) error {
	id := c.Params("id")
	if middleware.CurrentIdentity(c).User.ID != id {
		return h.views.Redirect(c, "/me", session.FlashError, "You cannot edit another user's profile")
	}
	user, err := h.service.GetUserByID(id)
	if err != nil {
		logUnexpected(c, err, "Error loading profile")
		return h.views.Redirect(c, "/me", session.FlashError, "User not found")
	}
	return h.views.Render(c, fiber.StatusOK, "edit", "Edit profile", fiber.Map{"user": user})
}

// ProfileRequest represents the profile form. Empty fields are left unchanged.
type ProfileRequest struct {
	Name     string `json:"name" form:"name" validate:"omitempty,max=100"`
	Username string `json:"username" form:"username" validate:"omitempty,min=3,max=100"`
	Email    string `json:"email" form:"email" validate:"omitempty,email"`
	Password string `json:"password" form:"password" validate:"omitempty,min=6"`
}

// HandleEdit updates the current user's profile and optional picture.
func (h *UserHandler) HandleEdit(c *fiber.Ctx) error {
	id := c.Params("id")
	editPath := "/users/edit/" + id

	var req ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return h.views.Redirect(c, editPath, session.FlashError, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}
	if err := h.validate.Struct(req); err != nil {
		return h.views.Redirect(c, editPath, session.FlashError, joined(validationErrors(err)))
	}

	actor := middleware.CurrentIdentity(c).User
	if actor.ID != id {
		return h.views.Redirect(c, "/me", session.FlashError, "You cannot edit another user's profile")
	}

	picture, err := storeAvatar(c, h.uploader)
	if err != nil {
		logUnexpected(c, err, "Error storing profile picture")
		return h.views.Redirect(c, editPath, session.FlashError, userMessage(err, "Could not store the picture"))
	}

	updated, err := h.service.UpdateProfile(actor, id, services.ProfileInput{
		Name:       req.Name,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		ProfilePic: picture,
	})
	if err != nil {
		discardAvatar(h.uploader, picture)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return h.views.Redirect(c, "/me", session.FlashError, "User not found")
		case errors.Is(err, apperror.ErrForbidden):
			return h.views.Redirect(c, "/me", session.FlashError, "You cannot edit another user's profile")
		}
		logUnexpected(c, err, "Error updating profile")
		return h.views.Redirect(c, editPath, session.FlashError, userMessage(err, "Could not update the profile"))
	}

	if st, err := h.sessions.Load(c); err == nil {
		if u := st.User(); u != nil && u.ID == updated.ID {
			st.RefreshUser(updated.Snapshot())
		}
	}
	return h.views.Redirect(c, "/me", session.FlashSuccess, "Profile updated successfully")
}
