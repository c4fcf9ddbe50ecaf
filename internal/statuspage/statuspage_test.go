package statuspage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/beacon/db"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func input(fields map[string]any) Input {
	in := Input{Present: map[string]bool{}}
	for k, v := range fields {
		in.Present[k] = true
		switch k {
		case "name":
			in.Name = v
		case "slug":
			in.Slug = v
		case "description":
			in.Description = v
		case "is_public":
			in.IsPublic = v
		case "checks":
			in.Checks = v
		}
	}
	return in
}

type fixture struct {
	conn  *gorm.DB
	clock *clock.Fixed
	agg   *Aggregator
	alice types.Caller
	bob   types.Caller
}

func setup(t *testing.T) fixture {
	conn := db.OpenTest(t)
	clk := clock.NewFixed(now)
	alice := db.SeedProject(t, conn, "alice")
	bob := db.SeedProject(t, conn, "bob")

	return fixture{
		conn:  conn,
		clock: clk,
		agg:   NewAggregator(conn, clk),
		alice: types.Caller{ProjectID: alice.ID},
		bob:   types.Caller{ProjectID: bob.ID},
	}
}

func TestCreate(t *testing.T) {
	f := setup(t)
	check := db.SeedCheck(t, f.conn, f.alice.ProjectID, "api", "", types.StatusUp)

	page, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{
		"name":        "My Status",
		"slug":        "my-status",
		"description": "Test page",
		"is_public":   true,
		"checks":      []any{check.Code.String()},
	}))
	require.NoError(t, err)

	d, err := f.agg.ToDict(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "My Status", d.Name)
	assert.Equal(t, "my-status", d.Slug)
	assert.Equal(t, "Test page", d.Description)
	assert.True(t, d.IsPublic)
	assert.Equal(t, []string{check.Code.String()}, d.Checks)
	assert.Equal(t, "2026-03-01T12:00:00Z", d.Created)
	assert.Equal(t, types.StatusUp, d.Status)
}

func TestCreateMinimal(t *testing.T) {
	f := setup(t)

	page, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{
		"name": "Minimal",
		"slug": "minimal",
	}))
	require.NoError(t, err)

	d, err := f.agg.ToDict(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, d.IsPublic)
	assert.Equal(t, "", d.Description)
	assert.Equal(t, []string{}, d.Checks)
	assert.Equal(t, types.StatusNoChecks, d.Status)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	foreign := db.SeedCheck(t, f.conn, f.bob.ProjectID, "bobs", "", types.StatusUp)

	cases := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{"missing name", map[string]any{"slug": "a"}, "name is required"},
		{"empty name", map[string]any{"name": "", "slug": "a"}, "name is required"},
		{"name not a string", map[string]any{"name": 1.0, "slug": "a"}, "name must be a string"},
		{"name too long", map[string]any{"name": strings.Repeat("x", 101), "slug": "a"}, "name is too long"},
		{"missing slug", map[string]any{"name": "n"}, "slug is required"},
		{"slug too long", map[string]any{"name": "n", "slug": strings.Repeat("x", 101)}, "slug is too long"},
		{"uppercase slug", map[string]any{"name": "n", "slug": "UPPER"}, "invalid slug"},
		{"slug with spaces", map[string]any{"name": "n", "slug": "has spaces"}, "invalid slug"},
		{"padded slug", map[string]any{"name": "n", "slug": " my-page"}, "invalid slug"},
		{"slug with trailing newline", map[string]any{"name": "n", "slug": "my-page\n"}, "invalid slug"},
		{"blank slug", map[string]any{"name": "n", "slug": "   "}, "slug is required"},
		{"slug not a string", map[string]any{"name": "n", "slug": 7.0}, "slug must be a string"},
		{"is_public not bool", map[string]any{"name": "n", "slug": "a", "is_public": "yes"}, "is_public must be a boolean"},
		{"checks not list", map[string]any{"name": "n", "slug": "a", "checks": "x"}, "checks must be a list"},
		{"bad check uuid", map[string]any{"name": "n", "slug": "a", "checks": []any{"not-a-uuid"}}, "invalid uuid"},
		{"foreign check", map[string]any{"name": "n", "slug": "a", "checks": []any{foreign.Code.String()}}, "unauthorized"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.agg.Create(context.Background(), f.alice, input(tc.fields))
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.KindValidation))
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	pages, err := f.agg.List(context.Background(), f.alice)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestSlugUniqueAcrossProjects(t *testing.T) {
	f := setup(t)

	_, err := f.agg.Create(context.Background(), f.bob, input(map[string]any{"name": "Bob", "slug": "taken"}))
	require.NoError(t, err)

	_, err = f.agg.Create(context.Background(), f.alice, input(map[string]any{"name": "Alice", "slug": "taken"}))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))
	assert.Contains(t, err.Error(), "already in use")
}

func TestInsertDuplicateSlug(t *testing.T) {
	f := setup(t)

	_, err := f.agg.Create(context.Background(), f.bob, input(map[string]any{"name": "Bob", "slug": "raced"}))
	require.NoError(t, err)

	// A create that passed the uniqueness check before the other one committed.
	page := &models.StatusPage{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		Code:      uuid.New(),
		ProjectID: f.alice.ProjectID,
		Name:      "Alice",
		Slug:      "raced",
	}
	err = insertPage(f.conn, page)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))
	assert.Equal(t, "slug already in use", err.Error())
}

func TestQuota(t *testing.T) {
	f := setup(t)

	left, err := f.agg.AvailableQuota(context.Background(), f.alice)
	require.NoError(t, err)
	assert.Equal(t, 5, left)

	for i := 0; i < types.MaxStatusPagesPerProject; i++ {
		_, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{
			"name": fmt.Sprintf("Page %d", i),
			"slug": fmt.Sprintf("page-%d", i),
		}))
		require.NoError(t, err)
	}

	left, err = f.agg.AvailableQuota(context.Background(), f.alice)
	require.NoError(t, err)
	assert.Zero(t, left)

	_, err = f.agg.Create(context.Background(), f.alice, input(map[string]any{"name": "Over", "slug": "over"}))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindQuota))
	assert.Contains(t, err.Error(), "too many")

	// Bob is unaffected.
	left, err = f.agg.AvailableQuota(context.Background(), f.bob)
	require.NoError(t, err)
	assert.Equal(t, 5, left)
}

func TestGetListDelete(t *testing.T) {
	f := setup(t)

	older, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{"name": "Older", "slug": "older"}))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	newer, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{"name": "Newer", "slug": "newer"}))
	require.NoError(t, err)
	_, err = f.agg.Create(context.Background(), f.bob, input(map[string]any{"name": "Bob", "slug": "bob"}))
	require.NoError(t, err)

	pages, err := f.agg.List(context.Background(), f.alice)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Newer", pages[0].Name)
	assert.Equal(t, "Older", pages[1].Name)

	got, err := f.agg.Get(context.Background(), f.alice, older.Code.String())
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	_, err = f.agg.Get(context.Background(), f.bob, older.Code.String())
	assert.True(t, types.IsKind(err, types.KindForbidden))

	_, err = f.agg.Get(context.Background(), f.alice, uuid.NewString())
	assert.True(t, types.IsKind(err, types.KindNotFound))

	err = f.agg.Delete(context.Background(), f.bob, newer.Code.String())
	assert.True(t, types.IsKind(err, types.KindForbidden))

	require.NoError(t, f.agg.Delete(context.Background(), f.alice, newer.Code.String()))

	err = f.agg.Delete(context.Background(), f.alice, newer.Code.String())
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestGetPublic(t *testing.T) {
	f := setup(t)

	_, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{"name": "Pub", "slug": "pub", "is_public": true}))
	require.NoError(t, err)
	_, err = f.agg.Create(context.Background(), f.alice, input(map[string]any{"name": "Priv", "slug": "priv"}))
	require.NoError(t, err)

	page, err := f.agg.GetPublic(context.Background(), "pub")
	require.NoError(t, err)
	assert.Equal(t, "Pub", page.Name)

	_, privErr := f.agg.GetPublic(context.Background(), "priv")
	_, missingErr := f.agg.GetPublic(context.Background(), "nope")
	require.Error(t, privErr)
	assert.True(t, types.IsKind(privErr, types.KindNotFound))
	assert.Equal(t, missingErr, privErr)
}

func TestAggregateStatus(t *testing.T) {
	f := setup(t)
	up := db.SeedCheck(t, f.conn, f.alice.ProjectID, "up", "", types.StatusUp)
	down := db.SeedCheck(t, f.conn, f.alice.ProjectID, "down", "", types.StatusDown)
	fresh := db.SeedCheck(t, f.conn, f.alice.ProjectID, "new", "", types.StatusNew)

	page, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{
		"name":   "All",
		"slug":   "all",
		"checks": []any{up.Code.String(), down.Code.String(), fresh.Code.String()},
	}))
	require.NoError(t, err)

	got, err := f.agg.AggregateStatus(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDown, got)

	// Maintenance on the down check hides it.
	require.NoError(t, f.conn.Create(&models.MaintenanceWindow{
		Code: uuid.New(), OwnerID: down.ID, Title: "fix",
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}).Error)

	got, err = f.agg.AggregateStatus(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, types.StatusUp, got)

	f.clock.Advance(time.Hour)
	got, err = f.agg.AggregateStatus(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDown, got)
}

func TestDeleteProjectCascades(t *testing.T) {
	f := setup(t)
	check := db.SeedCheck(t, f.conn, f.alice.ProjectID, "api", "", types.StatusUp)
	kept := db.SeedCheck(t, f.conn, f.bob.ProjectID, "bobs", "", types.StatusUp)

	_, err := f.agg.Create(context.Background(), f.alice, input(map[string]any{
		"name": "A", "slug": "a", "checks": []any{check.Code.String()},
	}))
	require.NoError(t, err)
	_, err = f.agg.Create(context.Background(), f.bob, input(map[string]any{
		"name": "B", "slug": "b", "checks": []any{kept.Code.String()},
	}))
	require.NoError(t, err)

	require.NoError(t, f.agg.DeleteProject(context.Background(), f.alice.ProjectID))

	var n int64
	f.conn.Model(&models.StatusPage{}).Where("project_id = ?", f.alice.ProjectID).Count(&n)
	assert.Zero(t, n)
	f.conn.Model(&models.Check{}).Where("project_id = ?", f.alice.ProjectID).Count(&n)
	assert.Zero(t, n)
	f.conn.Model(&models.Project{}).Where("id = ?", f.alice.ProjectID).Count(&n)
	assert.Zero(t, n)

	f.conn.Model(&models.StatusPageCheck{}).Count(&n)
	assert.Equal(t, int64(1), n)

	// The slug is free again.
	_, err = f.agg.Create(context.Background(), f.bob, input(map[string]any{"name": "A2", "slug": "a"}))
	assert.NoError(t, err)
}
