package checks

import (
	"context"
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
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	conn := db.OpenTest(t)
	alice := db.SeedProject(t, conn, "alice")
	bob := db.SeedProject(t, conn, "bob")
	check := db.SeedCheck(t, conn, alice.ID, "backup", "", types.StatusUp)

	got, err := Resolve(conn, types.Caller{ProjectID: alice.ID}, check.Code.String())
	require.NoError(t, err)
	assert.Equal(t, check.ID, got.ID)

	_, err = Resolve(conn, types.Caller{ProjectID: bob.ID}, check.Code.String())
	assert.True(t, types.IsKind(err, types.KindForbidden))

	_, err = Resolve(conn, types.Caller{ProjectID: alice.ID}, uuid.NewString())
	assert.True(t, types.IsKind(err, types.KindNotFound))

	_, err = Resolve(conn, types.Caller{ProjectID: alice.ID}, "not-a-uuid")
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestCreateNormalizesTags(t *testing.T) {
	conn := db.OpenTest(t)
	project := db.SeedProject(t, conn, "alice")
	svc := NewService(conn, clock.NewFixed(start))

	check, err := svc.Create(context.Background(), types.Caller{ProjectID: project.ID}, CreateInput{
		Name: "  nightly  ",
		Tags: "Prod db  prod",
	})
	require.NoError(t, err)

	assert.Equal(t, "nightly", check.Name)
	assert.Equal(t, "db prod", check.Tags)
	assert.Equal(t, types.StatusNew, check.Status)
	assert.NotEqual(t, uuid.Nil, check.Code)

	_, err = svc.Create(context.Background(), types.Caller{ProjectID: project.ID}, CreateInput{
		Name: strings.Repeat("a", 101),
	})
	assert.EqualError(t, err, "name is too long")
}

func TestListFiltersByAllTags(t *testing.T) {
	conn := db.OpenTest(t)
	alice := db.SeedProject(t, conn, "alice")
	bob := db.SeedProject(t, conn, "bob")
	db.SeedCheck(t, conn, alice.ID, "a", "db prod", types.StatusUp)
	db.SeedCheck(t, conn, alice.ID, "b", "prod", types.StatusUp)
	db.SeedCheck(t, conn, alice.ID, "c", "", types.StatusNew)
	db.SeedCheck(t, conn, bob.ID, "d", "db prod", types.StatusUp)

	svc := NewService(conn, clock.NewFixed(start))
	caller := types.Caller{ProjectID: alice.ID}

	all, err := svc.List(context.Background(), caller, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	prod, err := svc.List(context.Background(), caller, "prod")
	require.NoError(t, err)
	assert.Len(t, prod, 2)

	both, err := svc.List(context.Background(), caller, "PROD db")
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "a", both[0].Name)
}

func TestDictsApplyMaintenanceOverlay(t *testing.T) {
	conn := db.OpenTest(t)
	project := db.SeedProject(t, conn, "alice")
	check := db.SeedCheck(t, conn, project.ID, "api", "web prod", types.StatusDown)

	require.NoError(t, conn.Create(&models.MaintenanceWindow{
		Code:      uuid.New(),
		OwnerID:   check.ID,
		Title:     "upgrade",
		StartTime: start.Add(-time.Hour),
		EndTime:   start.Add(time.Hour),
	}).Error)

	clk := clock.NewFixed(start)
	svc := NewService(conn, clk)

	dicts, err := svc.Dicts(context.Background(), []models.Check{check})
	require.NoError(t, err)
	require.Len(t, dicts, 1)

	d := dicts[0]
	assert.Equal(t, check.Code.String(), d.UUID)
	assert.Equal(t, types.StatusPaused, d.Status)
	assert.Equal(t, types.StatusDown, d.RawStatus)
	assert.True(t, d.InMaintenance)
	assert.Equal(t, []string{"prod", "web"}, d.TagsList)
	assert.Nil(t, d.LastPing)

	clk.Advance(time.Hour)
	dicts, err = svc.Dicts(context.Background(), []models.Check{check})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDown, dicts[0].Status)
	assert.False(t, dicts[0].InMaintenance)
}

func TestDeleteCascades(t *testing.T) {
	conn := db.OpenTest(t)
	project := db.SeedProject(t, conn, "alice")
	check := db.SeedCheck(t, conn, project.ID, "api", "", types.StatusUp)
	other := db.SeedCheck(t, conn, project.ID, "web", "", types.StatusUp)

	page := models.StatusPage{Code: uuid.New(), ProjectID: project.ID, Name: "Public", Slug: "public"}
	require.NoError(t, conn.Create(&page).Error)
	require.NoError(t, conn.Create(&[]models.StatusPageCheck{
		{StatusPageID: page.ID, CheckID: check.ID},
		{StatusPageID: page.ID, CheckID: other.ID},
	}).Error)
	require.NoError(t, conn.Create(&models.MaintenanceWindow{
		Code: uuid.New(), OwnerID: check.ID, Title: "x", StartTime: start, EndTime: start.Add(time.Hour),
	}).Error)
	require.NoError(t, AppendFlip(conn, &check, types.StatusNew, types.StatusUp, start))

	require.NoError(t, Delete(conn, &check))

	var n int64
	conn.Model(&models.Check{}).Where("id = ?", check.ID).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.MaintenanceWindow{}).Where("owner_id = ?", check.ID).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.Flip{}).Where("owner_id = ?", check.ID).Count(&n)
	assert.Zero(t, n)

	// The page and its other member survive.
	conn.Model(&models.StatusPageCheck{}).Where("status_page_id = ?", page.ID).Count(&n)
	assert.Equal(t, int64(1), n)
	conn.Model(&models.StatusPage{}).Where("id = ?", page.ID).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestFlipsNewestFirst(t *testing.T) {
	conn := db.OpenTest(t)
	project := db.SeedProject(t, conn, "alice")
	check := db.SeedCheck(t, conn, project.ID, "api", "", types.StatusUp)

	require.NoError(t, AppendFlip(conn, &check, types.StatusNew, types.StatusUp, start))
	require.NoError(t, AppendFlip(conn, &check, types.StatusUp, types.StatusPaused, start.Add(time.Minute)))

	svc := NewService(conn, clock.NewFixed(start))
	flips, err := svc.Flips(context.Background(), types.Caller{ProjectID: project.ID}, check.Code.String())
	require.NoError(t, err)
	require.Len(t, flips, 2)

	assert.Equal(t, types.StatusPaused, flips[0].NewStatus)
	assert.Equal(t, types.StatusUp, flips[0].OldStatus)
	assert.Equal(t, "2026-03-01T12:01:00Z", flips[0].Timestamp)
	assert.Equal(t, types.StatusUp, flips[1].NewStatus)
}
