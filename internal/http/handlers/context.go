package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// withTimeout bounds storage work by d and by the client's own request lifetime.
func withTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

// eventIDParam reads the numeric :id path parameter. Anything else is
// answered with 404, as no event can match it.
func eventIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondNotFound(ctx, "Event not found")
		return 0, false
	}
	return id, true
}
