// Package checks owns the Check entity: lookup scoped to a caller, creation,
// cascading deletion, the flip ledger and the serialized check form.
package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/status"
	"github.com/monocle-dev/beacon/internal/tags"
	"github.com/monocle-dev/beacon/internal/types"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewService(db *gorm.DB, clk clock.Clock) *Service {
	return &Service{db: db, clock: clk}
}

// Dict is the serialized form of a check.
type Dict struct {
	UUID          string   `json:"uuid"`
	Name          string   `json:"name"`
	Tags          string   `json:"tags"`
	TagsList      []string `json:"tags_list"`
	Status        string   `json:"status"`
	RawStatus     string   `json:"raw_status"`
	InMaintenance bool     `json:"in_maintenance"`
	LastPing      *string  `json:"last_ping"`
	Created       string   `json:"created"`
}

// ToDict serializes check with the maintenance overlay evaluated at now.
func ToDict(check models.Check, windows []models.MaintenanceWindow, now time.Time) Dict {
	return Dict{
		UUID:          check.Code.String(),
		Name:          check.Name,
		Tags:          check.Tags,
		TagsList:      tags.Parse(check.Tags).List(),
		Status:        status.Effective(check.Status, windows, now),
		RawStatus:     check.Status,
		InMaintenance: status.InMaintenance(windows, now),
		LastPing:      types.FormatTimePtr(check.LastPing),
		Created:       types.FormatTime(check.CreatedAt),
	}
}

// Resolve loads the check with the given code. A malformed or unknown code
// is NotFound; a check owned by another project is Forbidden.
func Resolve(tx *gorm.DB, caller types.Caller, code string) (*models.Check, error) {
	parsed, err := uuid.Parse(code)
	if err != nil {
		return nil, types.NotFound("check not found")
	}

	var check models.Check
	if err := tx.Where("code = ?", parsed).First(&check).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("check not found")
		}
		return nil, fmt.Errorf("load check %s: %w", parsed, err)
	}

	if check.ProjectID != caller.ProjectID {
		return nil, types.Forbidden("check belongs to another project")
	}

	return &check, nil
}

// Delete removes check together with its maintenance windows, flips and
// status page memberships. Pages themselves survive. Callers pass a
// transaction so the cascade is all-or-nothing.
func Delete(tx *gorm.DB, check *models.Check) error {
	if err := tx.Where("owner_id = ?", check.ID).Delete(&models.MaintenanceWindow{}).Error; err != nil {
		return fmt.Errorf("delete maintenance windows of check %d: %w", check.ID, err)
	}

	if err := tx.Where("owner_id = ?", check.ID).Delete(&models.Flip{}).Error; err != nil {
		return fmt.Errorf("delete flips of check %d: %w", check.ID, err)
	}

	if err := tx.Where("check_id = ?", check.ID).Delete(&models.StatusPageCheck{}).Error; err != nil {
		return fmt.Errorf("delete page memberships of check %d: %w", check.ID, err)
	}

	if err := tx.Delete(&models.Check{}, check.ID).Error; err != nil {
		return fmt.Errorf("delete check %d: %w", check.ID, err)
	}

	return nil
}

// AppendFlip records a transition of check. It must run in the same
// transaction as the mutation it describes.
func AppendFlip(tx *gorm.DB, check *models.Check, oldStatus, newStatus string, at time.Time) error {
	flip := models.Flip{
		BaseModel: models.BaseModel{CreatedAt: at},
		OwnerID:   check.ID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}

	if err := tx.Create(&flip).Error; err != nil {
		return fmt.Errorf("append flip for check %d: %w", check.ID, err)
	}

	return nil
}

// WindowsByCheck loads the maintenance windows of the given checks keyed by
// check id.
func WindowsByCheck(tx *gorm.DB, checkIDs []uint) (map[uint][]models.MaintenanceWindow, error) {
	out := make(map[uint][]models.MaintenanceWindow, len(checkIDs))
	if len(checkIDs) == 0 {
		return out, nil
	}

	var windows []models.MaintenanceWindow
	if err := tx.Where("owner_id IN ?", checkIDs).Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("load maintenance windows: %w", err)
	}

	for _, w := range windows {
		out[w.OwnerID] = append(out[w.OwnerID], w)
	}

	return out, nil
}

type CreateInput struct {
	Name string
	Tags string
}

func (s *Service) Create(ctx context.Context, caller types.Caller, in CreateInput) (*models.Check, error) {
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) > types.MaxNameLength {
		return nil, types.Validation("name is too long")
	}

	now := s.clock.Now()
	check := models.Check{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		Code:      uuid.New(),
		ProjectID: caller.ProjectID,
		Name:      name,
		Tags:      tags.Normalize(in.Tags),
		Status:    types.StatusNew,
	}

	if err := s.db.WithContext(ctx).Create(&check).Error; err != nil {
		return nil, fmt.Errorf("create check: %w", err)
	}

	return &check, nil
}

// List returns the caller's checks, oldest first. When tagFilter is not
// empty only checks carrying every one of its tags are returned.
func (s *Service) List(ctx context.Context, caller types.Caller, tagFilter string) ([]models.Check, error) {
	var all []models.Check
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", caller.ProjectID).
		Order("created_at ASC, id ASC").
		Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	want := tags.Parse(tagFilter)
	if len(want) == 0 {
		return all, nil
	}

	out := make([]models.Check, 0, len(all))
	for _, c := range all {
		if tags.Parse(c.Tags).Contains(want) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller types.Caller, code string) (*models.Check, error) {
	return Resolve(s.db.WithContext(ctx), caller, code)
}

// Dicts serializes checks at the service clock's current time.
func (s *Service) Dicts(ctx context.Context, list []models.Check) ([]Dict, error) {
	ids := make([]uint, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}

	windows, err := WindowsByCheck(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]Dict, 0, len(list))
	for _, c := range list {
		out = append(out, ToDict(c, windows[c.ID], now))
	}
	return out, nil
}

// FlipDict is the serialized form of a flip.
type FlipDict struct {
	Timestamp string `json:"timestamp"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Flips returns the flip ledger of a check, newest first.
func (s *Service) Flips(ctx context.Context, caller types.Caller, code string) ([]FlipDict, error) {
	tx := s.db.WithContext(ctx)

	check, err := Resolve(tx, caller, code)
	if err != nil {
		return nil, err
	}

	var flips []models.Flip
	if err := tx.Where("owner_id = ?", check.ID).
		Order("created_at DESC, id DESC").
		Find(&flips).Error; err != nil {
		return nil, fmt.Errorf("list flips of check %d: %w", check.ID, err)
	}

	out := make([]FlipDict, 0, len(flips))
	for _, f := range flips {
		out = append(out, FlipDict{
			Timestamp: types.FormatTime(f.CreatedAt),
			OldStatus: f.OldStatus,
			NewStatus: f.NewStatus,
		})
	}
	return out, nil
}
