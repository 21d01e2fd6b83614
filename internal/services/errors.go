package services

import "errors"

// Draw path errors. Every precondition failure leaves no side effects behind.
var (
	ErrActivityNotFound   = errors.New("activity not found")
	ErrActivityInactive   = errors.New("activity is not open for draws")
	ErrDailyLimitExceeded = errors.New("daily draw limit reached")
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrStockRaceExhausted never reaches callers; the draw degrades to no win.
	ErrStockRaceExhausted = errors.New("stock race retries exhausted")
	// ErrReconciliationPending means points were debited but the record was not stored.
	ErrReconciliationPending = errors.New("draw is pending reconciliation")
)

// Admin and record management errors
var (
	ErrInvalidActivity         = errors.New("invalid activity")
	ErrProbabilityOverflow     = errors.New("prize probabilities exceed 100")
	ErrQuantityBelowClaimed    = errors.New("prize quantity below already claimed count")
	ErrInvalidStatusTransition = errors.New("invalid draw record status transition")
	ErrRecordNotFound          = errors.New("draw record not found")
)

// Reasons wrapped by ErrActivityInactive
const (
	ReasonDisabled   = "disabled"
	ReasonNotStarted = "not started"
	ReasonEnded      = "already ended"
)
