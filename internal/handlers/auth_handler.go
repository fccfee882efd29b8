package handlers

import (
	"boutique/internal/apperror"
	"boutique/internal/middleware"
	"boutique/internal/services"
	"boutique/internal/session"
	"boutique/internal/upload"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and logout for both the browser
// and the API.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	sessions    *session.Manager
	views       *Renderer
	uploader    *upload.Uploader
	cookies     CookieConfig
	guards      Guards
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService, sessions *session.Manager, views *Renderer, uploader *upload.Uploader, cookies CookieConfig, guards Guards) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		sessions:    sessions,
		views:       views,
		uploader:    uploader,
		cookies:     cookies,
		guards:      guards,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the browser authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/register", h.HandleRegisterPage)
	router.Get("/login", h.HandleLoginPage)

	userRoutes := router.Group("/users")
	userRoutes.Post("/", h.HandleRegister)
	userRoutes.Post("/login", h.HandleLogin)
	userRoutes.Post("/logout", h.HandleLogout)
}

// RegisterAPIRoutes registers the token authentication routes.
func (h *AuthHandler) RegisterAPIRoutes(router fiber.Router) {
	router.Post("/auth", h.HandleAPIAuth)
	router.Get("/profile", h.guards.Token, h.HandleAPIProfile)
}

// HandleRegisterPage renders the registration form.
func (h *AuthHandler) HandleRegisterPage(c *fiber.Ctx) error {
	return h.views.Render(c, fiber.StatusOK, "register", "Register", nil)
}

// HandleLoginPage renders the login form.
func (h *AuthHandler) HandleLoginPage(c *fiber.Ctx) error {
	return h.views.Render(c, fiber.StatusOK, "login", "Login", nil)
}

// RegisterRequest represents the registration form.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" validate:"required,max=100"`
	Username string `json:"username" form:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// HandleRegister creates an account, signs the user in on both lanes and
// redirects to /me.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return h.views.Render(c, fiber.StatusBadRequest, "register", "Register", fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return h.views.Render(c, fiber.StatusBadRequest, "register", "Register", fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	picture, err := storeAvatar(c, h.uploader)
	if err != nil {
		return h.renderRegisterError(c, err)
	}

	creds, err := h.authService.RegisterUser(services.RegisterInput{
		Name:       req.Name,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		ProfilePic: picture,
	})
	if err != nil {
		discardAvatar(h.uploader, picture)
		return h.renderRegisterError(c, err)
	}

	if err := h.signIn(c, creds); err != nil {
		return err
	}
	return c.Redirect("/me", fiber.StatusFound)
}

func (h *AuthHandler) renderRegisterError(c *fiber.Ctx, err error) error {
	logUnexpected(c, err, "Error registering user")
	data := fiber.Map{
		"message": "Registration failed",
		"error":   userMessage(err, "Could not register user"),
	}
	if ce, ok := apperror.Conflict(err); ok {
		data["field"] = ce.Field
	}
	if ve, ok := apperror.Validation(err); ok {
		data["field"] = ve.Field
	}
	return h.views.Render(c, statusFor(err), "register", "Register", data)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// HandleLogin verifies the credentials, sets the token cookie and the session
// login, and redirects to /me. Failures go back to /login with a flash.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.views.Redirect(c, "/login", session.FlashError, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return h.views.Redirect(c, "/login", session.FlashError, joined(validationErrors(err)))
	}

	creds, err := h.authService.LoginUser(req.Email, req.Password)
	if err != nil {
		logUnexpected(c, err, "Error during login")
		return h.views.Redirect(c, "/login", session.FlashError, userMessage(err, "Login failed, please try again"))
	}

	if err := h.signIn(c, creds); err != nil {
		return err
	}
	return h.views.Redirect(c, "/me", session.FlashSuccess, "Logged in successfully")
}

func (h *AuthHandler) signIn(c *fiber.Ctx, creds *services.Credentials) error {
	setTokenCookie(c, h.cookies, creds.Token)

	st, err := h.sessions.Load(c)
	if err != nil {
		// the token cookie alone still authenticates
		log.Error().Err(err).Str("user_id", creds.User.ID).Msg("Could not start session")
		return nil
	}
	return st.SetUser(creds.User.Snapshot())
}

// HandleLogout ends the session, clears the token cookie and redirects to /register.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	st, err := h.sessions.Load(c)
	if err != nil {
		return err
	}
	if err := st.Destroy(); err != nil {
		log.Error().Err(err).Msg("Error during logout")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error during logout",
		})
	}
	clearTokenCookie(c, h.cookies)
	return c.Redirect("/register", fiber.StatusFound)
}

// HandleAPIAuth exchanges credentials for a token.
func (h *AuthHandler) HandleAPIAuth(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	creds, err := h.authService.LoginUser(req.Email, req.Password)
	if err != nil {
		return apiError(c, err, "Authentication failed")
	}

	return c.JSON(fiber.Map{
		"token": creds.Token,
		"user":  creds.User,
	})
}

// HandleAPIProfile returns the user behind the token.
func (h *AuthHandler) HandleAPIProfile(c *fiber.Ctx) error {
	user, err := h.userService.GetUserByID(middleware.CurrentIdentity(c).User.ID)
	if err != nil {
		return apiError(c, err, "Could not retrieve profile")
	}
	return c.JSON(user)
}
