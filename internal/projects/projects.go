// Package projects registers projects and resolves API keys to the caller
// scope every other operation runs under.
package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/monocle-dev/beacon/internal/auth"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/types"
	"gorm.io/gorm"
)

type Registry struct {
	db     *gorm.DB
	clock  clock.Clock
	hasher auth.Hasher
}

func NewRegistry(db *gorm.DB, clk clock.Clock, hasher auth.Hasher) *Registry {
	return &Registry{db: db, clock: clk, hasher: hasher}
}

// Create stores a new project and returns it with its plaintext API key.
// The key is not recoverable afterwards.
func (r *Registry) Create(ctx context.Context, name string) (*models.Project, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", types.Validation("name is required")
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	hash, err := r.hasher.Hash(key)
	if err != nil {
		return nil, "", err
	}

	now := r.clock.Now()
	project := models.Project{
		BaseModel:    models.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:         name,
		APIKeyPrefix: auth.KeyPrefix(key),
		APIKeyHash:   hash,
	}

	if err := r.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, "", fmt.Errorf("create project: %w", err)
	}

	return &project, key, nil
}

// Authenticate resolves key to its project.
func (r *Registry) Authenticate(ctx context.Context, key string) (types.Caller, error) {
	if key == "" {
		return types.Caller{}, types.Authentication("missing api key")
	}

	var candidates []models.Project
	if err := r.db.WithContext(ctx).
		Where("api_key_prefix = ?", auth.KeyPrefix(key)).
		Find(&candidates).Error; err != nil {
		return types.Caller{}, fmt.Errorf("look up api key: %w", err)
	}

	for _, p := range candidates {
		if r.hasher.Matches(p.APIKeyHash, key) {
			return types.Caller{ProjectID: p.ID}, nil
		}
	}

	return types.Caller{}, types.Authentication("wrong api key")
}

// Exists reports whether projectID still exists. Tokens outlive deleted
// projects otherwise.
func (r *Registry) Exists(ctx context.Context, projectID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("look up project %d: %w", projectID, err)
	}
	return n > 0, nil
}
