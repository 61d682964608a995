package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response represents the envelope of every RPC reply
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

// Error returns an error response
func Error(code, message string) Response {
	return Response{
		Status:  StatusError,
		Code:    code,
		Message: message,
	}
}

// SuccessJSON sends a success envelope. RPC replies always use HTTP 200.
func SuccessJSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Success(data))
}

// ErrorJSON sends an error envelope with HTTP 200
func ErrorJSON(c *gin.Context, code, message string) {
	c.JSON(http.StatusOK, Error(code, message))
}
