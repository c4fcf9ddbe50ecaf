// Package statuspage owns named collections of checks and the single verdict
// computed for each of them.
package statuspage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/monocle-dev/beacon/internal/checks"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/status"
	"github.com/monocle-dev/beacon/internal/types"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type Aggregator struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewAggregator(db *gorm.DB, clk clock.Clock) *Aggregator {
	return &Aggregator{db: db, clock: clk}
}

// Input carries the untyped request fields. Present reports which optional
// fields were sent at all.
type Input struct {
	Name        any
	Slug        any
	Description any
	IsPublic    any
	Checks      any
	Present     map[string]bool
}

func (in Input) has(field string) bool {
	return in.Present != nil && in.Present[field]
}

// Dict is the serialized form of a page.
type Dict struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
	Checks      []string `json:"checks"`
	Created     string   `json:"created"`
	Status      string   `json:"status"`
}

type validated struct {
	name        string
	slug        string
	description string
	isPublic    bool
	checkIDs    []uint
}

// Create validates in and stores a new page owned by the caller's project.
// Fields are checked in order, then slug uniqueness, then the quota.
func (a *Aggregator) Create(ctx context.Context, caller types.Caller, in Input) (*models.StatusPage, error) {
	var page *models.StatusPage

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := validate(tx, caller, in)
		if err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&models.StatusPage{}).Where("slug = ?", v.slug).Count(&taken).Error; err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if taken > 0 {
			return types.Validation("slug already in use")
		}

		available, err := availableQuota(tx, caller)
		if err != nil {
			return err
		}
		if available <= 0 {
			return types.QuotaExceeded("too many status pages")
		}

		now := a.clock.Now()
		page = &models.StatusPage{
			BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
			Code:        uuid.New(),
			ProjectID:   caller.ProjectID,
			Name:        v.name,
			Slug:        v.slug,
			Description: v.description,
			IsPublic:    v.isPublic,
		}

		if err := insertPage(tx, page); err != nil {
			return err
		}

		if len(v.checkIDs) == 0 {
			return nil
		}

		members := make([]models.StatusPageCheck, 0, len(v.checkIDs))
		for _, id := range v.checkIDs {
			members = append(members, models.StatusPageCheck{StatusPageID: page.ID, CheckID: id})
		}

		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("add status page members: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return page, nil
}

// insertPage stores page. A concurrent create can claim the slug between the
// uniqueness check and the insert; the unique index reports it.
func insertPage(tx *gorm.DB, page *models.StatusPage) error {
	if err := tx.Create(page).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.Validation("slug already in use")
		}
		return fmt.Errorf("create status page: %w", err)
	}
	return nil
}

func validate(tx *gorm.DB, caller types.Caller, in Input) (validated, error) {
	var v validated
	var err error

	if v.name, err = requiredString("name", in.Name, types.MaxNameLength); err != nil {
		return v, err
	}

	if v.slug, err = requiredSlug(in.Slug); err != nil {
		return v, err
	}
	if !slugPattern.MatchString(v.slug) {
		return v, types.Validation("invalid slug")
	}

	if in.has("description") && in.Description != nil {
		s, ok := in.Description.(string)
		if !ok {
			return v, types.Validation("description must be a string")
		}
		v.description = strings.TrimSpace(s)
	}

	if in.has("is_public") {
		b, ok := in.IsPublic.(bool)
		if !ok {
			return v, types.Validation("is_public must be a boolean")
		}
		v.isPublic = b
	}

	if in.has("checks") && in.Checks != nil {
		list, ok := in.Checks.([]any)
		if !ok {
			return v, types.Validation("checks must be a list")
		}
		if v.checkIDs, err = resolveMembers(tx, caller, list); err != nil {
			return v, err
		}
	}

	return v, nil
}

func requiredString(field string, raw any, max int) (string, error) {
	s, err := stringField(field, raw)
	if err != nil {
		return "", err
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", types.Validation(field + " is required")
	}

	if len([]rune(s)) > max {
		return "", types.Validation(field + " is too long")
	}

	return s, nil
}

// requiredSlug keeps the slug exactly as sent; surrounding whitespace fails
// the pattern instead of being stripped.
func requiredSlug(raw any) (string, error) {
	s, err := stringField("slug", raw)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(s) == "" {
		return "", types.Validation("slug is required")
	}

	if len([]rune(s)) > types.MaxSlugLength {
		return "", types.Validation("slug is too long")
	}

	return s, nil
}

func stringField(field string, raw any) (string, error) {
	if raw == nil {
		return "", types.Validation(field + " is required")
	}

	s, ok := raw.(string)
	if !ok {
		return "", types.Validation(field + " must be a string")
	}

	return s, nil
}

// resolveMembers maps check codes to ids. Every code must name a check of
// the caller's project; unknown and foreign checks are rejected the same way.
func resolveMembers(tx *gorm.DB, caller types.Caller, list []any) ([]uint, error) {
	seen := make(map[uint]bool, len(list))
	ids := make([]uint, 0, len(list))

	for _, raw := range list {
		s, ok := raw.(string)
		if !ok {
			return nil, types.Validation("invalid uuid")
		}

		code, err := uuid.Parse(s)
		if err != nil {
			return nil, types.Validation("invalid uuid: " + s)
		}

		var check models.Check
		err = tx.Where("code = ? AND project_id = ?", code, caller.ProjectID).First(&check).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.Validation("unauthorized check: " + s)
		}
		if err != nil {
			return nil, fmt.Errorf("load check %s: %w", code, err)
		}

		if !seen[check.ID] {
			seen[check.ID] = true
			ids = append(ids, check.ID)
		}
	}

	return ids, nil
}

// resolve loads a page by its public code and checks ownership.
func resolve(tx *gorm.DB, caller types.Caller, code string) (*models.StatusPage, error) {
	parsed, err := uuid.Parse(code)
	if err != nil {
		return nil, types.NotFound("status page not found")
	}

	var page models.StatusPage
	if err := tx.Where("code = ?", parsed).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("status page not found")
		}
		return nil, fmt.Errorf("load status page %s: %w", parsed, err)
	}

	if page.ProjectID != caller.ProjectID {
		return nil, types.Forbidden("status page belongs to another project")
	}

	return &page, nil
}

func (a *Aggregator) Get(ctx context.Context, caller types.Caller, code string) (*models.StatusPage, error) {
	return resolve(a.db.WithContext(ctx), caller, code)
}

// List returns the caller's pages, newest created first.
func (a *Aggregator) List(ctx context.Context, caller types.Caller) ([]models.StatusPage, error) {
	var pages []models.StatusPage

	if err := a.db.WithContext(ctx).
		Where("project_id = ?", caller.ProjectID).
		Order("created_at DESC, id DESC").
		Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list status pages: %w", err)
	}

	return pages, nil
}

// Delete removes a page and its membership rows. Member checks are kept.
func (a *Aggregator) Delete(ctx context.Context, caller types.Caller, code string) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		page, err := resolve(tx, caller, code)
		if err != nil {
			return err
		}
		return deletePages(tx, []uint{page.ID})
	})
}

// GetPublic looks a page up by slug without any caller scope. Private and
// missing pages produce the same error.
func (a *Aggregator) GetPublic(ctx context.Context, slug string) (*models.StatusPage, error) {
	var page models.StatusPage

	err := a.db.WithContext(ctx).Where("slug = ? AND is_public = ?", slug, true).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("status page not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load public status page: %w", err)
	}

	return &page, nil
}

// AvailableQuota is how many more pages the caller's project may create.
func (a *Aggregator) AvailableQuota(ctx context.Context, caller types.Caller) (int, error) {
	return availableQuota(a.db.WithContext(ctx), caller)
}

func availableQuota(tx *gorm.DB, caller types.Caller) (int, error) {
	var n int64
	if err := tx.Model(&models.StatusPage{}).Where("project_id = ?", caller.ProjectID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count status pages: %w", err)
	}
	return types.MaxStatusPagesPerProject - int(n), nil
}

// members loads the checks of page ordered by creation.
func members(tx *gorm.DB, pageID uint) ([]models.Check, error) {
	var list []models.Check

	if err := tx.Joins("JOIN status_page_checks ON status_page_checks.check_id = checks.id").
		Where("status_page_checks.status_page_id = ?", pageID).
		Order("checks.created_at ASC, checks.id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load members of status page %d: %w", pageID, err)
	}

	return list, nil
}

// AggregateStatus rolls the effective statuses of the page's members at the
// aggregator clock's current time into one verdict.
func (a *Aggregator) AggregateStatus(ctx context.Context, page *models.StatusPage) (string, error) {
	d, err := a.ToDict(ctx, page)
	if err != nil {
		return "", err
	}
	return d.Status, nil
}

// ToDict serializes page with its member codes and aggregate status.
func (a *Aggregator) ToDict(ctx context.Context, page *models.StatusPage) (Dict, error) {
	tx := a.db.WithContext(ctx)

	list, err := members(tx, page.ID)
	if err != nil {
		return Dict{}, err
	}

	ids := make([]uint, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}

	windows, err := checks.WindowsByCheck(tx, ids)
	if err != nil {
		return Dict{}, err
	}

	now := a.clock.Now()
	codes := make([]string, 0, len(list))
	statuses := make([]string, 0, len(list))
	for _, c := range list {
		codes = append(codes, c.Code.String())
		statuses = append(statuses, status.Effective(c.Status, windows[c.ID], now))
	}

	return Dict{
		UUID:        page.Code.String(),
		Name:        page.Name,
		Slug:        page.Slug,
		Description: page.Description,
		IsPublic:    page.IsPublic,
		Checks:      codes,
		Created:     types.FormatTime(page.CreatedAt),
		Status:      status.Aggregate(statuses),
	}, nil
}

// DeleteProject removes a project together with its pages and its checks.
func (a *Aggregator) DeleteProject(ctx context.Context, projectID uint) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pageIDs []uint
		if err := tx.Model(&models.StatusPage{}).Where("project_id = ?", projectID).Pluck("id", &pageIDs).Error; err != nil {
			return fmt.Errorf("list status pages of project %d: %w", projectID, err)
		}

		if err := deletePages(tx, pageIDs); err != nil {
			return err
		}

		var owned []models.Check
		if err := tx.Where("project_id = ?", projectID).Find(&owned).Error; err != nil {
			return fmt.Errorf("list checks of project %d: %w", projectID, err)
		}

		for i := range owned {
			if err := checks.Delete(tx, &owned[i]); err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&models.BulkOperation{}).Error; err != nil {
			return fmt.Errorf("delete bulk operations of project %d: %w", projectID, err)
		}

		if err := tx.Delete(&models.Project{}, projectID).Error; err != nil {
			return fmt.Errorf("delete project %d: %w", projectID, err)
		}

		return nil
	})
}

func deletePages(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	if err := tx.Where("status_page_id IN ?", ids).Delete(&models.StatusPageCheck{}).Error; err != nil {
		return fmt.Errorf("delete status page members: %w", err)
	}

	if err := tx.Where("id IN ?", ids).Delete(&models.StatusPage{}).Error; err != nil {
		return fmt.Errorf("delete status pages: %w", err)
	}

	return nil
}
