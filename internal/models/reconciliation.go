package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReconciliationStatus tracks repair of a draw whose record failed to commit
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationResolved ReconciliationStatus = "resolved"
)

// ReconciliationKind names the step of the draw that could not be confirmed
type ReconciliationKind string

const (
	// ReconciliationRecordMissing: the debit committed but the record append failed
	ReconciliationRecordMissing    ReconciliationKind = "record_missing"
	// ReconciliationDebitUnconfirmed: the ledger gave no definite answer to the debit
	ReconciliationDebitUnconfirmed ReconciliationKind = "debit_unconfirmed"
)

// Reconciliation holds the snapshot of a draw whose points were, or may have been,
// debited but whose record was not stored.
// The record id is also the ledger reference of the debit.
type Reconciliation struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Kind       ReconciliationKind   `bson:"kind" json:"kind"`
	RecordID   primitive.ObjectID   `bson:"recordId" json:"recordId"`
	Record     DrawRecord           `bson:"record" json:"record"`
	Reason     string               `bson:"reason" json:"reason"`
	Status     ReconciliationStatus `bson:"status" json:"status"`
	Attempts   int                  `bson:"attempts" json:"attempts"`
	LastError  string               `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt *time.Time           `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// DebitUnconfirmed reports whether the ledger outcome still has to be settled.
// Entries written before kinds existed are record_missing.
func (r *Reconciliation) DebitUnconfirmed() bool {
	return r.Kind == ReconciliationDebitUnconfirmed
}
