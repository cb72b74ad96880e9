package http_access_middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	http_common "github.com/planpoker/core/internal/delivery/http/common"
)

// ReadOnlyMiddleware rejects mutating calls when the instance runs in
// "RO" mode, e.g. a replica serving only getRoom polling traffic.
func ReadOnlyMiddleware(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if mode != "RO" {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		c.JSON(http.StatusOK, http_common.Fail(http_common.CodeNotAllowed))
		c.Abort()
	}
}
