package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sulu/sulu-sub013/repository"
)

// StatusFor maps a service error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrMissingArgument), errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the status of err and records it on the context
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

// validator is implemented by every request model
type validator interface {
	Validate() error
}

// bind decodes the JSON body into req and validates it
func bind(c *gin.Context, req validator) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
