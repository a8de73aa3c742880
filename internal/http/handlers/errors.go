package handlers

import (
	"net/http"

	"carrental/internal/domain"
	"carrental/internal/http/middleware"
	"carrental/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, domain.CodeValidation, err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, domain.CodeBookingNotFound, err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, domain.ConflictCode(err), err.Error(), nil)
	case domain.IsPaymentRejected(err):
		respondError(c, http.StatusUnprocessableEntity, domain.CodePaymentRejected, err.Error(), nil)
	case domain.IsServiceUnavailable(err):
		respondError(c, http.StatusServiceUnavailable, domain.CodeServiceUnavailable, err.Error(), nil)
	default:
		utils.LogError(middleware.GetRequestID(c), "http", c.Request.Method+" "+c.FullPath(), "unhandled error", err)
		respondError(c, http.StatusInternalServerError, domain.CodeInternal, "internal server error", nil)
	}
}
