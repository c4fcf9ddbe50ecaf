package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/maintenance"
)

func (h *Handler) CreateMaintenanceWindow(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	body, ok := decodeBody(ctx)

	if !ok {
		return
	}

	window, err := h.Maintenance.Create(ctx.Request.Context(), caller, ctx.Param("code"), maintenance.Input{
		Title:     body["title"],
		StartTime: body["start_time"],
		EndTime:   body["end_time"],
	})

	if err != nil {
		writeError(ctx, err)
		return
	}

	h.publish(caller, "maintenance_created")
	ctx.JSON(http.StatusCreated, maintenance.ToDict(*window))
}

func (h *Handler) ListMaintenanceWindows(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	windows, err := h.Maintenance.List(ctx.Request.Context(), caller, ctx.Param("code"))

	if err != nil {
		writeError(ctx, err)
		return
	}

	response := make([]maintenance.Dict, 0, len(windows))

	for _, w := range windows {
		response = append(response, maintenance.ToDict(w))
	}

	ctx.JSON(http.StatusOK, gin.H{"maintenance_windows": response})
}

func (h *Handler) DeleteMaintenanceWindow(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	if err := h.Maintenance.Delete(ctx.Request.Context(), caller, ctx.Param("code"), ctx.Param("wid")); err != nil {
		writeError(ctx, err)
		return
	}

	h.publish(caller, "maintenance_deleted")
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
