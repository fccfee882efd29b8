package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boutique/internal/config"
	"boutique/internal/database"
	"boutique/internal/logger"
	"boutique/internal/repositories"
	"boutique/internal/server"
	"boutique/internal/services"
	"boutique/internal/upload"
	"boutique/pkg/rabbitmq"
	"boutique/pkg/redisstore"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server gracefully stopped")
}

func run(cfg *config.Config) error {
	userRepo, productRepo, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	checks := map[string]func() error{}
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database handle: %w", err)
		}
		defer sqlDB.Close()
		checks["database"] = sqlDB.Ping
	}

	var sessionStorage fiber.Storage
	if cfg.SessionStore == "redis" {
		store, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		sessionStorage = store
		checks["redis"] = func() error {
			_, err := store.Get("health")
			return err
		}
	}

	avatars, avatarDir, err := openAvatarStore(cfg)
	if err != nil {
		return err
	}

	// publisher stays an untyped nil when RabbitMQ is disabled
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return err
		}
		defer mqClient.Close()
		events = mqClient

		if err := mqClient.ConsumeEvents(rabbitmq.LogEvent); err != nil {
			log.Error().Err(err).Msg("Failed to start RabbitMQ consumer")
		}
	} else {
		log.Info().Msg("RABBITMQ_URL not set, domain events are disabled")
	}

	srv := server.New(server.Options{
		UserRepo:       userRepo,
		ProductRepo:    productRepo,
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.JWTExpiresIn,
		TokenCookieTTL: cfg.TokenCookieTTL,
		SessionTTL:     cfg.SessionTTL,
		SessionStorage: sessionStorage,
		CookieSecure:   cfg.CookieSecure,
		BcryptCost:     cfg.BcryptCost,
		Avatars:        avatars,
		AvatarDir:      avatarDir,
		Events:         events,
		Checks:         checks,
		AccessLog:      true,
	})

	if cfg.AdminConfigured() {
		if _, err := srv.Users.EnsureAdmin(cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.AppPort).Msg("Starting server")
		listenErr <- srv.App.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	if err := srv.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Error during Fiber shutdown")
	}
	return nil
}

func openStore(cfg *config.Config) (repositories.UserRepository, repositories.ProductRepository, *gorm.DB, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return repositories.NewInMemoryUserRepository(), repositories.NewInMemoryProductRepository(), nil, nil
	}

	driver := database.DriverSQLite
	if cfg.StoreDriver == config.StorePostgres {
		driver = database.DriverPostgres
	}
	db, err := database.Open(driver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	return repositories.NewGORMUserRepository(db), repositories.NewGORMProductRepository(db), db, nil
}

func openAvatarStore(cfg *config.Config) (upload.Store, string, error) {
	if cfg.AvatarStore == "s3" {
		s3Cfg := upload.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := upload.NewS3Client(ctx, s3Cfg)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("bucket", cfg.S3Bucket).Msg("Storing avatars in S3")
		return upload.NewS3Store(client, s3Cfg), "", nil
	}

	store, err := upload.NewDiskStore(cfg.UploadDir, server.AvatarURLPrefix)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}
