package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/monocle-dev/beacon/internal/types"
)

// Credentials resolves API keys and confirms that token subjects still exist.
type Credentials interface {
	Authenticate(ctx context.Context, key string) (types.Caller, error)
	Exists(ctx context.Context, projectID uint) (bool, error)
}

// TokenVerifier returns the project a bearer token is scoped to.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

type keyBody struct {
	APIKey any `json:"api_key"`
}

// Auth resolves the caller from, in order: an "Authorization: Bearer" token,
// a "token" query parameter, the X-Api-Key header or the api_key field of a
// JSON body. The resolved types.Caller is stored under types.ContextCallerKey.
func Auth(creds Credentials, tokens TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token := bearerToken(ctx); token != "" {
			authenticateToken(ctx, creds, tokens, token)
			return
		}

		key := ctx.GetHeader("X-Api-Key")
		if key == "" {
			key = bodyKey(ctx)
		}

		caller, err := creds.Authenticate(ctx.Request.Context(), key)
		if err != nil {
			abortWithError(ctx, err)
			return
		}

		ctx.Set(types.ContextCallerKey, caller)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	return ctx.Query("token")
}

func authenticateToken(ctx *gin.Context, creds Credentials, tokens TokenVerifier, token string) {
	projectID, err := tokens.Verify(token)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	exists, err := creds.Exists(ctx.Request.Context(), projectID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if !exists {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	ctx.Set(types.ContextCallerKey, types.Caller{ProjectID: projectID})
	ctx.Next()
}

// bodyKey reads api_key from a JSON body. The body is cached by gin so
// handlers can bind it again with ShouldBindBodyWith.
func bodyKey(ctx *gin.Context) string {
	if ctx.Request.Body == nil || ctx.Request.ContentLength == 0 {
		return ""
	}

	var body keyBody
	if err := ctx.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}

	key, _ := body.APIKey.(string)
	return key
}

func abortWithError(ctx *gin.Context, err error) {
	if e, ok := types.AsError(err); ok {
		ctx.AbortWithStatusJSON(e.Status(), gin.H{"error": e.Message})
		return
	}

	slog.Error("authenticate request", "path", ctx.Request.URL.Path, "err", err)
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
