package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kpiboard/backend/internal/interfaces/http/dto"
)

// BodyLimit caps the request body size. The API only ever receives small
// JSON payloads, the marketplace data itself arrives through the database,
// so the cap can be tight.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				requestID(c),
			))
			return
		}

		// Chunked requests carry no Content-Length, the limited reader
		// catches those while the body streams.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
