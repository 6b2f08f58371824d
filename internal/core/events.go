package core

import "time"

// ChangeKind names a committed ledger mutation.
type ChangeKind string

const (
	TransactionCreated ChangeKind = "transaction.created"
	TransactionUpdated ChangeKind = "transaction.updated"
	TransactionDeleted ChangeKind = "transaction.deleted"
	GoalContributed    ChangeKind = "goal.contributed"
	EntityCreated      ChangeKind = "entity.created"
	EntityUpdated      ChangeKind = "entity.updated"
	EntityDeleted      ChangeKind = "entity.deleted"
	SnapshotImported   ChangeKind = "snapshot.imported"
)

// Change describes one effect of a committed mutation. Transaction is set for
// transaction kinds (for deletions it holds the removed record).
type Change struct {
	Kind        ChangeKind   `json:"kind"`
	Entity      string       `json:"entity"`
	EntityID    string       `json:"entityId,omitempty"`
	Version     int64        `json:"version"`
	Transaction *Transaction `json:"transaction,omitempty"`
	At          time.Time    `json:"at"`
}

// Entity names used in changes.
const (
	EntityAccount      = "account"
	EntityTransaction  = "transaction"
	EntityCategory     = "category"
	EntityBudget       = "budget"
	EntityGoal         = "goal"
	EntitySubscription = "subscription"
	EntityCreditCard   = "credit_card"
	EntityContact      = "contact"
	EntityProfile      = "profile"
	EntityRiskProfile  = "risk_profile"
	EntityLastWill     = "last_will"
	EntitySnapshot     = "snapshot"
)
