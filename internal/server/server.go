package server

import (
	"errors"
	"time"

	"boutique/internal/handlers"
	"boutique/internal/middleware"
	"boutique/internal/repositories"
	"boutique/internal/services"
	"boutique/internal/session"
	"boutique/internal/upload"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// AvatarURLPrefix is the path disk-stored avatars are served under.
const AvatarURLPrefix = "/uploads/avatars"

// Options carries everything the application is built from.
type Options struct {
	UserRepo    repositories.UserRepository
	ProductRepo repositories.ProductRepository

	JWTSecret      string
	TokenTTL       time.Duration
	TokenCookieTTL time.Duration
	SessionTTL     time.Duration
	SessionStorage fiber.Storage // nil keeps sessions in memory
	CookieSecure   bool
	BcryptCost     int

	Avatars   upload.Store
	AvatarDir string // served under AvatarURLPrefix when set

	Events    services.EventPublisher // nil disables events
	Checks    map[string]func() error // reported by /health
	AccessLog bool
}

// Server is the wired application.
type Server struct {
	App      *fiber.App
	Auth     *services.AuthService
	Users    *services.UserService
	Sessions *session.Manager
}

// New wires services, handlers and routes.
func New(opts Options) *Server {
	hasher := services.NewBcryptHasher(opts.BcryptCost)
	tokens := services.NewTokenManager(opts.JWTSecret, opts.TokenTTL)
	uploader := upload.NewUploader(opts.Avatars)

	authService := services.NewAuthService(opts.UserRepo, hasher, tokens, opts.Events)
	userService := services.NewUserService(opts.UserRepo, hasher, uploader, opts.Events)
	productService := services.NewProductService(opts.ProductRepo, opts.Events)
	wishlistService := services.NewWishlistService(opts.UserRepo, opts.ProductRepo, opts.Events)

	sessions := session.NewManager(session.Config{
		Storage:      opts.SessionStorage,
		TTL:          opts.SessionTTL,
		CookieSecure: opts.CookieSecure,
	})
	views := handlers.NewRenderer(sessions)
	guards := handlers.Guards{
		Browser: middleware.CombinedAuth(authService, sessions),
		Token:   middleware.TokenRequired(authService),
		Admin:   middleware.AdminOnly(),
	}
	cookies := handlers.CookieConfig{TTL: opts.TokenCookieTTL, Secure: opts.CookieSecure}

	authHandler := handlers.NewAuthHandler(authService, userService, sessions, views, uploader, cookies, guards)
	userHandler := handlers.NewUserHandler(userService, sessions, views, uploader, cookies, guards)
	productHandler := handlers.NewProductHandler(productService, views, guards)
	wishlistHandler := handlers.NewWishlistHandler(wishlistService, views, guards)

	app := fiber.New(fiber.Config{
		AppName:      "boutique",
		BodyLimit:    upload.MaxSize + 1<<20,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", healthHandler(opts.Checks))
	if opts.AvatarDir != "" {
		app.Static(AvatarURLPrefix, opts.AvatarDir)
	}

	api := app.Group("/api")
	authHandler.RegisterAPIRoutes(api)
	productHandler.RegisterAPIRoutes(api)
	wishlistHandler.RegisterAPIRoutes(api)

	// registered after /api, so API routes never reach the session store
	app.Use(sessions.Middleware())
	authHandler.RegisterRoutes(app)
	userHandler.RegisterRoutes(app)
	productHandler.RegisterRoutes(app)
	wishlistHandler.RegisterRoutes(app)

	return &Server{
		App:      app,
		Auth:     authService,
		Users:    userService,
		Sessions: sessions,
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Request failed")
		return c.Status(code).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
	return c.Status(code).JSON(fiber.Map{
		"message": err.Error(),
	})
}

func healthHandler(checks map[string]func() error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(); err != nil {
				results[name] = err.Error()
				status, code = "unhealthy", fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
			"checks": results,
		})
	}
}
