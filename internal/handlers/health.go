package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/types"
)

func (h *Handler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Beacon is running",
		"timestamp": types.FormatTime(h.Clock.Now()),
	})
}
