package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies at limit. Routes in uploadRoutes (gin full
// paths) get uploadLimit instead.
func MaxBodyBytes(limit, uploadLimit int64, uploadRoutes ...string) gin.HandlerFunc {
	uploads := make(map[string]struct{}, len(uploadRoutes))
	for _, r := range uploadRoutes {
		uploads[r] = struct{}{}
	}

	return func(ctx *gin.Context) {
		max := limit
		if _, ok := uploads[ctx.FullPath()]; ok {
			max = uploadLimit
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)

		ctx.Next()
	}
}
