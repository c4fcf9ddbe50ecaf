package db

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/monocle-dev/beacon/internal/models"
	"gorm.io/gorm"
)

// OpenTest returns a migrated in-memory sqlite database private to t.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := Connect("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return conn
}

// SeedProject inserts a project with a placeholder key hash.
func SeedProject(t testing.TB, conn *gorm.DB, name string) models.Project {
	t.Helper()

	project := models.Project{Name: name, APIKeyPrefix: "seed", APIKeyHash: "seed"}
	if err := conn.Create(&project).Error; err != nil {
		t.Fatalf("seed project %q: %v", name, err)
	}
	return project
}

// SeedCheck inserts a check owned by projectID with the given raw status.
func SeedCheck(t testing.TB, conn *gorm.DB, projectID uint, name, tags, status string) models.Check {
	t.Helper()

	check := models.Check{
		Code:      uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Tags:      tags,
		Status:    status,
	}
	if err := conn.Create(&check).Error; err != nil {
		t.Fatalf("seed check %q: %v", name, err)
	}
	return check
}
