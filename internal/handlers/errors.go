package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// errorStatus maps a service error to its HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrActivityNotFound):
		return http.StatusNotFound, "ACTIVITY_NOT_FOUND"
	case errors.Is(err, services.ErrRecordNotFound):
		return http.StatusNotFound, "RECORD_NOT_FOUND"
	case errors.Is(err, services.ErrActivityInactive):
		return http.StatusConflict, "ACTIVITY_INACTIVE"
	case errors.Is(err, services.ErrInvalidStatusTransition):
		return http.StatusConflict, "INVALID_STATUS_TRANSITION"
	case errors.Is(err, services.ErrDailyLimitExceeded):
		return http.StatusTooManyRequests, "DAILY_LIMIT_EXCEEDED"
	case errors.Is(err, services.ErrInsufficientPoints):
		return http.StatusPaymentRequired, "INSUFFICIENT_POINTS"
	case errors.Is(err, services.ErrProbabilityOverflow):
		return http.StatusUnprocessableEntity, "PROBABILITY_OVERFLOW"
	case errors.Is(err, services.ErrQuantityBelowClaimed):
		return http.StatusUnprocessableEntity, "QUANTITY_BELOW_CLAIMED"
	case errors.Is(err, services.ErrInvalidActivity):
		return http.StatusUnprocessableEntity, "INVALID_ACTIVITY"
	case errors.Is(err, services.ErrReconciliationPending):
		return http.StatusAccepted, "RECONCILIATION_PENDING"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// respondError writes the {"error","code"} body for err
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "BAD_REQUEST"})
}
