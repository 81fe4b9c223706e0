package controllers

import (
	"errors"
	"net/http"

	"backend/apperror"
	"backend/logger"

	"github.com/gin-gonic/gin"
)

// reject converts a service error into the structured rejection body.
// Business-rule errors keep their user-facing message; anything else becomes
// a generic failure with the detail kept server-side only.
func reject(c *gin.Context, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		c.JSON(statusFor(ae), gin.H{
			"success":    false,
			"error_kind": ae.Kind,
			"message":    ae.Message,
		})
		return
	}

	logger.Error("unhandled error", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success":    false,
		"error_kind": "INTERNAL",
		"message":    "something went wrong, please try again",
	})
}

func statusFor(ae *apperror.AppError) int {
	switch {
	case errors.Is(ae.Err, apperror.ErrValidation),
		errors.Is(ae.Err, apperror.ErrStaleCapture):
		return http.StatusBadRequest
	case errors.Is(ae.Err, apperror.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(ae.Err, apperror.ErrTooSoon),
		errors.Is(ae.Err, apperror.ErrDailyCapReached):
		return http.StatusTooManyRequests
	case errors.Is(ae.Err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(ae.Err, apperror.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
