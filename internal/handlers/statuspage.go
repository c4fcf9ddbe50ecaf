package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/statuspage"
)

func (h *Handler) CreateStatusPage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	body, ok := decodeBody(ctx)

	if !ok {
		return
	}

	in := statuspage.Input{
		Name:        body["name"],
		Slug:        body["slug"],
		Description: body["description"],
		IsPublic:    body["is_public"],
		Checks:      body["checks"],
		Present:     make(map[string]bool, len(body)),
	}

	for field := range body {
		in.Present[field] = true
	}

	page, err := h.StatusPages.Create(ctx.Request.Context(), caller, in)

	if err != nil {
		writeError(ctx, err)
		return
	}

	d, err := h.StatusPages.ToDict(ctx.Request.Context(), page)

	if err != nil {
		writeError(ctx, err)
		return
	}

	h.publish(caller, "status_page_created")
	ctx.JSON(http.StatusCreated, d)
}

func (h *Handler) ListStatusPages(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	pages, err := h.StatusPages.List(ctx.Request.Context(), caller)

	if err != nil {
		writeError(ctx, err)
		return
	}

	response := make([]statuspage.Dict, 0, len(pages))

	for i := range pages {
		d, err := h.StatusPages.ToDict(ctx.Request.Context(), &pages[i])

		if err != nil {
			writeError(ctx, err)
			return
		}

		response = append(response, d)
	}

	ctx.JSON(http.StatusOK, gin.H{"status_pages": response})
}

func (h *Handler) GetStatusPage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	page, err := h.StatusPages.Get(ctx.Request.Context(), caller, ctx.Param("id"))

	if err != nil {
		writeError(ctx, err)
		return
	}

	d, err := h.StatusPages.ToDict(ctx.Request.Context(), page)

	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteStatusPage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)

	if !ok {
		return
	}

	if err := h.StatusPages.Delete(ctx.Request.Context(), caller, ctx.Param("id")); err != nil {
		writeError(ctx, err)
		return
	}

	h.publish(caller, "status_page_deleted")
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetPublicStatusPage needs no credentials.
func (h *Handler) GetPublicStatusPage(ctx *gin.Context) {
	page, err := h.StatusPages.GetPublic(ctx.Request.Context(), ctx.Param("slug"))

	if err != nil {
		writeError(ctx, err)
		return
	}

	d, err := h.StatusPages.ToDict(ctx.Request.Context(), page)

	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, d)
}
