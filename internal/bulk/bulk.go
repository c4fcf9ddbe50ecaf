// Package bulk applies pause, resume, delete and add_tags across a batch of
// checks. The whole batch is validated before anything is written and is
// applied in a single transaction.
package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/beacon/internal/checks"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/tags"
	"github.com/monocle-dev/beacon/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action is one of the closed set of batch operations.
type Action int

const (
	Pause Action = iota + 1
	Resume
	Delete
	AddTags
)

func (a Action) String() string {
	switch a {
	case Pause:
		return "pause"
	case Resume:
		return "resume"
	case Delete:
		return "delete"
	case AddTags:
		return "add_tags"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction maps the wire name to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "pause":
		return Pause, nil
	case "resume":
		return Resume, nil
	case "delete":
		return Delete, nil
	case "add_tags":
		return AddTags, nil
	default:
		return 0, types.Validation("invalid action")
	}
}

// Request is a batch after its JSON shape has been checked. Tags is nil when
// the field was absent or not a string.
type Request struct {
	Action   Action
	CheckIDs []string
	Tags     *string
}

// Result is returned to the caller after a successful batch.
type Result struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// Publisher is told which project changed once a batch has committed.
type Publisher interface {
	Publish(projectID uint, reason string)
}

type Executor struct {
	db        *gorm.DB
	clock     clock.Clock
	publisher Publisher
}

func NewExecutor(db *gorm.DB, clk clock.Clock, pub Publisher) *Executor {
	return &Executor{db: db, clock: clk, publisher: pub}
}

// DecodeRequest checks the raw body fields in order: action, then the shape
// of the checks list. Remaining rules are enforced by Execute.
func DecodeRequest(body map[string]any) (Request, error) {
	name, _ := body["action"].(string)
	action, err := ParseAction(name)
	if err != nil {
		return Request{}, err
	}

	list, ok := body["checks"].([]any)
	if !ok {
		return Request{}, types.Validation("checks must be a list")
	}

	ids := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		ids = append(ids, s)
	}

	req := Request{Action: action, CheckIDs: ids}
	if s, ok := body["tags"].(string); ok {
		req.Tags = &s
	}

	return req, nil
}

// Execute validates req against the caller's project and applies it.
// Missing checks and checks of other projects are reported identically so
// that existence does not leak across projects.
func (e *Executor) Execute(ctx context.Context, caller types.Caller, req Request) (Result, error) {
	if req.Action < Pause || req.Action > AddTags {
		return Result{}, types.Validation("invalid action")
	}

	switch {
	case req.CheckIDs == nil:
		return Result{}, types.Validation("checks must be a list")
	case len(req.CheckIDs) == 0:
		return Result{}, types.Validation("checks list is empty")
	case len(req.CheckIDs) > types.MaxBulkChecks:
		return Result{}, types.Validation("too many checks")
	}

	codes := make([]uuid.UUID, 0, len(req.CheckIDs))
	for _, raw := range req.CheckIDs {
		code, err := uuid.Parse(raw)
		if err != nil {
			return Result{}, types.Validation("invalid uuid: " + raw)
		}
		codes = append(codes, code)
	}

	var count int
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resolved, err := resolve(tx, caller, codes)
		if err != nil {
			return err
		}

		var newTags tags.Set
		if req.Action == AddTags {
			if req.Tags == nil || strings.TrimSpace(*req.Tags) == "" {
				return types.Validation("tags is required")
			}
			newTags = tags.Parse(*req.Tags)
		}

		now := e.clock.Now()
		for i := range resolved {
			applied, err := e.apply(tx, req.Action, &resolved[i], newTags)
			if err != nil {
				return err
			}
			if applied {
				count++
			}
		}

		return recordOperation(tx, caller, req.Action, codes, count, now)
	})

	if err != nil {
		return Result{}, err
	}

	slog.Info("bulk operation applied",
		"project_id", caller.ProjectID,
		"action", req.Action.String(),
		"requested", len(codes),
		"count", count,
	)

	if e.publisher != nil && count > 0 {
		e.publisher.Publish(caller.ProjectID, "bulk_"+req.Action.String())
	}

	return Result{Success: true, Count: count}, nil
}

// resolve loads every check named by codes. Duplicate codes collapse to a
// single check.
func resolve(tx *gorm.DB, caller types.Caller, codes []uuid.UUID) ([]models.Check, error) {
	var found []models.Check
	if err := tx.Where("code IN ? AND project_id = ?", codes, caller.ProjectID).
		Order("id ASC").
		Find(&found).Error; err != nil {
		return nil, fmt.Errorf("resolve checks: %w", err)
	}

	byCode := make(map[uuid.UUID]bool, len(found))
	for _, c := range found {
		byCode[c.Code] = true
	}

	for _, code := range codes {
		if !byCode[code] {
			return nil, types.NotFound("check not found: " + code.String())
		}
	}

	return found, nil
}

// apply mutates a single check and reports whether it counts toward the
// result.
func (e *Executor) apply(tx *gorm.DB, action Action, check *models.Check, newTags tags.Set) (bool, error) {
	now := e.clock.Now()

	switch action {
	case Pause:
		old := check.Status
		if err := tx.Model(check).Updates(map[string]any{
			"status":      types.StatusPaused,
			"alert_after": nil,
			"last_start":  nil,
			"updated_at":  now,
		}).Error; err != nil {
			return false, fmt.Errorf("pause check %d: %w", check.ID, err)
		}
		return true, checks.AppendFlip(tx, check, old, types.StatusPaused, now)

	case Resume:
		if check.Status != types.StatusPaused {
			return false, nil
		}
		if err := tx.Model(check).Updates(map[string]any{
			"status":     types.StatusNew,
			"last_ping":  nil,
			"updated_at": now,
		}).Error; err != nil {
			return false, fmt.Errorf("resume check %d: %w", check.ID, err)
		}
		return true, checks.AppendFlip(tx, check, types.StatusPaused, types.StatusNew, now)

	case Delete:
		return true, checks.Delete(tx, check)

	case AddTags:
		merged := tags.Parse(check.Tags).Union(newTags).String()
		if err := tx.Model(check).Updates(map[string]any{
			"tags":       merged,
			"updated_at": now,
		}).Error; err != nil {
			return false, fmt.Errorf("tag check %d: %w", check.ID, err)
		}
		return true, nil
	}

	panic(fmt.Sprintf("bulk: unhandled action %v", action))
}

func recordOperation(tx *gorm.DB, caller types.Caller, action Action, codes []uuid.UUID, count int, at time.Time) error {
	raw, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("encode check codes: %w", err)
	}

	op := models.BulkOperation{
		BaseModel:  models.BaseModel{CreatedAt: at, UpdatedAt: at},
		ProjectID:  caller.ProjectID,
		Action:     action.String(),
		CheckCodes: datatypes.JSON(raw),
		Count:      count,
	}

	if err := tx.Create(&op).Error; err != nil {
		return fmt.Errorf("record bulk operation: %w", err)
	}

	return nil
}
