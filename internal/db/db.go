// Package db provides database connectivity and operations
package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nanobanan/banana/internal/db/models"
)

// DefaultFileName is the job history database file name
const DefaultFileName = "jobs.db"

// Options represents database configuration options
type Options struct {
	// Path is the database file location. Empty selects DefaultPath.
	Path     string
	LogLevel logger.LogLevel
}

// DefaultPath returns the job history database location under the user's
// data directory, creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".local", "share", "banana")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// New creates a new database connection with the given options
func New(opts Options) (*gorm.DB, error) {
	opts, err := setDefaults(opts)
	if err != nil {
		return nil, err
	}

	// WAL with synchronous=FULL so every committed transition is durable
	// before the call returns.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=FULL", opts.Path)

	newLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	config := &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open job database: %w", err)
	}
	if err := migrate(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// IsDuplicateKeyError checks if the given error is a duplicate key error
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func setDefaults(opts Options) (Options, error) {
	if opts.Path == "" {
		path, err := DefaultPath()
		if err != nil {
			return opts, err
		}
		opts.Path = path
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	return opts, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Job{},
	)
}
