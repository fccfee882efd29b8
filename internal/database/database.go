package database

import (
	"fmt"

	"boutique/internal/models"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// LogLevel maps a zerolog level onto gorm's logger. SQL statements are only
// logged at debug and below.
func LogLevel(level zerolog.Level) logger.LogLevel {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return logger.Info
	case zerolog.InfoLevel, zerolog.WarnLevel:
		return logger.Warn
	case zerolog.ErrorLevel:
		return logger.Error
	default:
		return logger.Silent
	}
}

// Open connects to the database for the given driver and runs migrations.
// gorm logs at the current global zerolog level.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(zerolog.GlobalLevel())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	log.Info().Str("driver", driver).Msg("Database connection successfully opened")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	log.Debug().Msg("Database migrated successfully")
	return nil
}
