package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/db"
	"github.com/monocle-dev/beacon/internal/auth"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/handlers"
	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/projects"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type account struct {
	id  uint
	key string
}

type harness struct {
	t      *testing.T
	engine *gin.Engine
	conn   *gorm.DB
	clock  *clock.Fixed
	h      *handlers.Handler
	alice  account
	bob    account
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn := db.OpenTest(t)
	clk := clock.NewFixed(now)
	registry := projects.NewRegistry(conn, clk, auth.Hasher{Cost: bcrypt.MinCost})

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	h := handlers.New(conn, clk, tokens)
	t.Cleanup(h.Hub.Close)

	hr := &harness{
		t:      t,
		engine: NewRouter(h, registry),
		conn:   conn,
		clock:  clk,
		h:      h,
	}

	for _, acc := range []*account{&hr.alice, &hr.bob} {
		p, key, err := registry.Create(context.Background(), "project")
		require.NoError(t, err)
		acc.id, acc.key = p.ID, key
	}

	return hr
}

func (hr *harness) check(owner account, name, tags, status string) models.Check {
	return db.SeedCheck(hr.t, hr.conn, owner.id, name, tags, status)
}

// do sends body as JSON. A non-empty key is sent as X-Api-Key.
func (hr *harness) do(method, path string, body any, key string) *httptest.ResponseRecorder {
	hr.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(hr.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-Api-Key", key)
	}

	rec := httptest.NewRecorder()
	hr.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decode(t, rec)["error"].(string)
	return msg
}
