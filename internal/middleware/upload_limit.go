package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for form boundaries and the language field.
const multipartOverhead = 64 * 1024

// UploadLimit caps the request body. A JSON upload carries the image as
// base64, which is 4/3 of the raw size, so the cap is scaled for it.
func UploadLimit(maxImageBytes int64) gin.HandlerFunc {
	limit := maxImageBytes*4/3 + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Upload too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
