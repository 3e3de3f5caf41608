package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/middleware/requestid"
)

// SuccessResponse represents a successful response with data
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends data wrapped in the response envelope with HTTP 200 OK.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data:      data,
		RequestID: requestid.GetRequestID(c.Request.Context()),
	})
}

// Error maps err with MapError, attaches it to the gin context for the
// logging middleware and aborts with the error response.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	status, resp := MapError(c.Request.Context(), err)
	c.AbortWithStatusJSON(status, resp)
}
