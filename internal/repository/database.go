package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/config"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultMigrationSource = "file://migration"

// InitDB opens postgres or sqlite depending on the DATABASE_URL scheme.
func InitDB(cfg config.Config) (*gorm.DB, error) {
	var dialer gorm.Dialector
	isPostgres := strings.HasPrefix(cfg.DatabaseURL, "postgres")
	switch {
	case isPostgres:
		dialer = postgres.Open(cfg.DatabaseURL)
	case strings.HasPrefix(cfg.DatabaseURL, "sqlite"):
		dialer = sqlite.Open(strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseURL)
	}

	logLevel := logger.Warn
	if cfg.AppEnv == "production" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(dialer, &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if isPostgres {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// sqlite serializes writers; in-memory databases are per connection
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate creates the schema through gorm. Used for sqlite, where the
// SQL migrations are not run.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.OrderMeta{}, &models.Touch{}, &models.AuditLog{}); err != nil {
		return fmt.Errorf("failed to auto-migrate schema: %w", err)
	}
	return nil
}

// RunMigrations applies the SQL files under sourcePath (default
// file://migration) to a postgres database.
func RunMigrations(databaseURL string, sourcePath string) error {
	if sourcePath == "" {
		sourcePath = defaultMigrationSource
	}
	m, err := migrate.New(sourcePath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("Database migrations ran successfully", "version", version, "dirty", dirty)
	return nil
}
