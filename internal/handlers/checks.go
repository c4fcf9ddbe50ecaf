package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/checks"
	"github.com/monocle-dev/beacon/internal/models"
)

func (h *Handler) ListChecks(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	list, err := h.Checks.List(ctx.Request.Context(), caller, ctx.Query("tag"))

	if err != nil {
		writeError(ctx, err)
		return
	}

	dicts, err := h.Checks.Dicts(ctx.Request.Context(), list)

	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"checks": dicts})
}

func (h *Handler) CreateCheck(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	body, ok := decodeBody(ctx)

	if !ok {
		return
	}

	name, err := optionalString(body, "name")

	if err != nil {
		writeError(ctx, err)
		return
	}

	tags, err := optionalString(body, "tags")

	if err != nil {
		writeError(ctx, err)
		return
	}

	check, err := h.Checks.Create(ctx.Request.Context(), caller, checks.CreateInput{Name: name, Tags: tags})

	if err != nil {
		writeError(ctx, err)
		return
	}

	h.publish(caller, "check_created")
	ctx.JSON(http.StatusCreated, checks.ToDict(*check, nil, h.Clock.Now()))
}

func (h *Handler) GetCheck(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	check, err := h.Checks.Get(ctx.Request.Context(), caller, ctx.Param("code"))

	if err != nil {
		writeError(ctx, err)
		return
	}

	dicts, err := h.Checks.Dicts(ctx.Request.Context(), []models.Check{*check})

	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dicts[0])
}

func (h *Handler) ListFlips(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	flips, err := h.Checks.Flips(ctx.Request.Context(), caller, ctx.Param("code"))

	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"flips": flips})
}
