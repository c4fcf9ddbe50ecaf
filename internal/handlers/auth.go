package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// IssueToken exchanges an API key for a short-lived bearer token scoped to
// the same project.
func (h *Handler) IssueToken(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	token, expires, err := h.Tokens.Generate(caller.ProjectID)

	if err != nil {
		slog.Error("issue token", "project_id", caller.ProjectID, "err", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token":   token,
		"expires": expires.UTC().Format(time.RFC3339),
	})
}
