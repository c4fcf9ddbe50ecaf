package db

import (
	"fmt"

	"github.com/monocle-dev/beacon/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm connection for the given driver ("postgres" or
// "sqlite").
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	// TranslateError turns unique violations into gorm.ErrDuplicatedKey on
	// both drivers.
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})

	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" || driver == "sqlite3" {
		// One writer at a time; transactions would otherwise fight over the file lock.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	models := []interface{}{
		&models.Project{},
		&models.Check{},
		&models.Flip{},
		&models.MaintenanceWindow{},
		&models.StatusPage{},
		&models.StatusPageCheck{},
		&models.BulkOperation{},
	}

	for _, model := range models {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	return nil
}
