package pointsledger

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned when the balance cannot cover a debit.
// No points are moved when it is returned.
var ErrInsufficientFunds = errors.New("insufficient points balance")

// Ledger debits points from a user's balance. Debit is atomic: it either
// removes exactly amount points or returns an error and changes nothing.
// reference is an idempotency key the ledger may use to deduplicate retries.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int64, reference string) error
}
