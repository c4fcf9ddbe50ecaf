package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/bulk"
	"github.com/monocle-dev/beacon/internal/types"
)

// Missing and foreign checks are both plain request errors on this route.
var bulkStatus = map[types.ErrorKind]int{
	types.KindNotFound:  http.StatusBadRequest,
	types.KindForbidden: http.StatusBadRequest,
}

func (h *Handler) BulkCheckOperation(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	body, ok := decodeBody(ctx)

	if !ok {
		return
	}

	req, err := bulk.DecodeRequest(body)

	if err != nil {
		writeErrorWith(ctx, err, bulkStatus)
		return
	}

	result, err := h.Bulk.Execute(ctx.Request.Context(), caller, req)

	if err != nil {
		writeErrorWith(ctx, err, bulkStatus)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
