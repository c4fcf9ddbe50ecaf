package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/monocle-dev/beacon/internal/auth"
	"github.com/monocle-dev/beacon/internal/bulk"
	"github.com/monocle-dev/beacon/internal/checks"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/maintenance"
	"github.com/monocle-dev/beacon/internal/statuspage"
	"github.com/monocle-dev/beacon/internal/types"
	"github.com/monocle-dev/beacon/internal/utils"
	"gorm.io/gorm"
)

// Handler serves the JSON API. All state lives in the services it wraps.
type Handler struct {
	Checks      *checks.Service
	Maintenance *maintenance.Store
	Bulk        *bulk.Executor
	StatusPages *statuspage.Aggregator
	Tokens      *auth.Tokens
	Hub         *Hub
	Clock       clock.Clock
}

func (h *Handler) publish(caller types.Caller, reason string) {
	if h.Hub != nil {
		h.Hub.Publish(caller.ProjectID, reason)
	}
}

func currentCaller(ctx *gin.Context) (types.Caller, bool) {
	caller, err := utils.GetCaller(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
		return types.Caller{}, false
	}

	return caller, true
}

// decodeBody binds a JSON object body. The raw body may already have been
// read by the auth middleware; gin caches it for this second bind.
func decodeBody(ctx *gin.Context) (map[string]any, bool) {
	var body map[string]any

	if err := ctx.ShouldBindBodyWith(&body, binding.JSON); err != nil || body == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "could not parse request body"})
		return nil, false
	}

	return body, true
}

// writeError maps a rejected operation to its status code. Anything that is
// not a *types.Error is logged and reported as a 500.
func writeError(ctx *gin.Context, err error) {
	writeErrorWith(ctx, err, nil)
}

// writeErrorWith is writeError with per-route status overrides by kind.
func writeErrorWith(ctx *gin.Context, err error, overrides map[types.ErrorKind]int) {
	if e, ok := types.AsError(err); ok {
		code := e.Status()
		if override, found := overrides[e.Kind]; found {
			code = override
		}
		ctx.JSON(code, gin.H{"error": e.Message})
		return
	}

	slog.Error("request failed",
		"method", ctx.Request.Method,
		"path", ctx.Request.URL.Path,
		"err", err,
	)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// optionalString reads a string field. Absent and null both yield "".
func optionalString(body map[string]any, field string) (string, error) {
	raw, present := body[field]

	if !present || raw == nil {
		return "", nil
	}

	s, ok := raw.(string)

	if !ok {
		return "", types.Validation(field + " must be a string")
	}

	return s, nil
}

// New wires the services over conn. Mutations are announced on the returned
// handler's Hub.
func New(conn *gorm.DB, clk clock.Clock, tokens *auth.Tokens) *Handler {
	hub := NewHub()

	return &Handler{
		Checks:      checks.NewService(conn, clk),
		Maintenance: maintenance.NewStore(conn, clk),
		Bulk:        bulk.NewExecutor(conn, clk, hub),
		StatusPages: statuspage.NewAggregator(conn, clk),
		Tokens:      tokens,
		Hub:         hub,
		Clock:       clk,
	}
}
