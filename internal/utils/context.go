package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/types"
)

// GetCaller returns the caller scope stored by the auth middleware.
func GetCaller(ctx *gin.Context) (types.Caller, error) {
	value, exists := ctx.Get(types.ContextCallerKey)

	if !exists {
		return types.Caller{}, fmt.Errorf("caller not authenticated")
	}

	caller, ok := value.(types.Caller)

	if !ok {
		return types.Caller{}, fmt.Errorf("invalid caller type in context")
	}

	return caller, nil
}
