// Package maintenance manages the time-bounded windows during which a
// check's displayed status is forced to paused.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/beacon/internal/checks"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/types"
	"gorm.io/gorm"
)

type Store struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewStore(db *gorm.DB, clk clock.Clock) *Store {
	return &Store{db: db, clock: clk}
}

// Input carries the untyped request fields; any of them may be missing or
// of the wrong JSON type.
type Input struct {
	Title     any
	StartTime any
	EndTime   any
}

// Dict is the serialized form of a window.
type Dict struct {
	UUID      string `json:"uuid"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Created   string `json:"created"`
}

func ToDict(w models.MaintenanceWindow) Dict {
	return Dict{
		UUID:      w.Code.String(),
		Title:     w.Title,
		StartTime: types.FormatTime(w.StartTime),
		EndTime:   types.FormatTime(w.EndTime),
		Created:   types.FormatTime(w.CreatedAt),
	}
}

// Create validates in and adds a window to the check identified by
// checkCode. Ownership is resolved first, then the fields, then the quota.
func (s *Store) Create(ctx context.Context, caller types.Caller, checkCode string, in Input) (*models.MaintenanceWindow, error) {
	var window *models.MaintenanceWindow

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		check, err := checks.Resolve(tx, caller, checkCode)
		if err != nil {
			return err
		}

		title, err := validateTitle(in.Title)
		if err != nil {
			return err
		}

		start, err := parseTimeField("start_time", in.StartTime)
		if err != nil {
			return err
		}

		end, err := parseTimeField("end_time", in.EndTime)
		if err != nil {
			return err
		}

		if !end.After(start) {
			return types.Validation("end_time must be after start_time")
		}

		var existing int64
		if err := tx.Model(&models.MaintenanceWindow{}).Where("owner_id = ?", check.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("count maintenance windows: %w", err)
		}

		if existing >= types.MaxWindowsPerCheck {
			return types.QuotaExceeded("too many maintenance windows")
		}

		now := s.clock.Now()
		window = &models.MaintenanceWindow{
			BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
			Code:      uuid.New(),
			OwnerID:   check.ID,
			Title:     title,
			StartTime: start,
			EndTime:   end,
		}

		if err := tx.Create(window).Error; err != nil {
			return fmt.Errorf("create maintenance window: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return window, nil
}

// List returns the check's windows, newest created first.
func (s *Store) List(ctx context.Context, caller types.Caller, checkCode string) ([]models.MaintenanceWindow, error) {
	tx := s.db.WithContext(ctx)

	check, err := checks.Resolve(tx, caller, checkCode)
	if err != nil {
		return nil, err
	}

	return ForCheck(tx, check.ID)
}

// ForCheck loads every window owned by checkID, newest created first.
func ForCheck(tx *gorm.DB, checkID uint) ([]models.MaintenanceWindow, error) {
	var windows []models.MaintenanceWindow

	if err := tx.Where("owner_id = ?", checkID).
		Order("created_at DESC, id DESC").
		Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("list maintenance windows of check %d: %w", checkID, err)
	}

	return windows, nil
}

// Delete removes one window of the check.
func (s *Store) Delete(ctx context.Context, caller types.Caller, checkCode, windowCode string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		check, err := checks.Resolve(tx, caller, checkCode)
		if err != nil {
			return err
		}

		code, err := uuid.Parse(windowCode)
		if err != nil {
			return types.NotFound("maintenance window not found")
		}

		var window models.MaintenanceWindow
		if err := tx.Where("code = ? AND owner_id = ?", code, check.ID).First(&window).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("maintenance window not found")
			}
			return fmt.Errorf("load maintenance window: %w", err)
		}

		if err := tx.Delete(&window).Error; err != nil {
			return fmt.Errorf("delete maintenance window: %w", err)
		}

		return nil
	})
}

func validateTitle(raw any) (string, error) {
	if raw == nil {
		return "", types.Validation("title is required")
	}

	s, ok := raw.(string)
	if !ok {
		return "", types.Validation("title must be a string")
	}

	title := strings.TrimSpace(s)
	if title == "" {
		return "", types.Validation("title is required")
	}

	if len([]rune(title)) > types.MaxTitleLength {
		return "", types.Validation("title is too long")
	}

	return title, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts ISO-8601 timestamps down to minute precision, or a bare
// date, with or without a fractional part and offset. Values without an
// offset are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseTimeField(field string, raw any) (time.Time, error) {
	if raw == nil {
		return time.Time{}, types.Validation(field + " is required")
	}

	s, ok := raw.(string)
	if !ok {
		return time.Time{}, types.Validation(field + " must be a string")
	}

	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, types.Validation("invalid " + field)
	}

	return t, nil
}
