package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ArowuTest/prizedraw-backend/pkg/pointsledger"
)

var _ pointsledger.Ledger = (*PointsLedger)(nil)

// PointsLedger is an in-memory balance store with atomic check-and-debit per user.
// A reference that already debited is acknowledged without moving points again.
type PointsLedger struct {
	balances   sync.Map // userID -> *atomic.Int64
	references sync.Map // reference -> struct{}
	debits     atomic.Int64
	debited    atomic.Int64
}

// NewPointsLedger creates an empty ledger
func NewPointsLedger() *PointsLedger {
	return &PointsLedger{}
}

func (l *PointsLedger) account(userID string) *atomic.Int64 {
	v, _ := l.balances.LoadOrStore(userID, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// SetBalance overwrites a user's balance
func (l *PointsLedger) SetBalance(userID string, balance int64) {
	l.account(userID).Store(balance)
}

// Balance returns a user's balance
func (l *PointsLedger) Balance(userID string) int64 {
	return l.account(userID).Load()
}

// Debits returns the number of successful debits and the total amount debited
func (l *PointsLedger) Debits() (count, total int64) {
	return l.debits.Load(), l.debited.Load()
}

// Debit removes amount from the user's balance if it is large enough
func (l *PointsLedger) Debit(ctx context.Context, userID string, amount int64, reference string) error {
	if amount == 0 {
		return nil
	}
	if reference != "" {
		if _, seen := l.references.LoadOrStore(reference, struct{}{}); seen {
			return nil
		}
	}
	acct := l.account(userID)
	for {
		cur := acct.Load()
		if cur < amount {
			if reference != "" {
				l.references.Delete(reference)
			}
			return pointsledger.ErrInsufficientFunds
		}
		if acct.CompareAndSwap(cur, cur-amount) {
			l.debits.Add(1)
			l.debited.Add(amount)
			return nil
		}
	}
}
