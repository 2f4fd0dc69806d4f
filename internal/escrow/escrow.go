package escrow

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an escrow transaction.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusFunded     Status = "funded"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusReleased   Status = "released"
	StatusDisputed   Status = "disputed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// MilestoneStatus represents the lifecycle state of a single milestone.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneFunded     MilestoneStatus = "funded"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneSubmitted  MilestoneStatus = "submitted"
	MilestoneApproved   MilestoneStatus = "approved"
	MilestoneReleased   MilestoneStatus = "released"
	MilestoneRejected   MilestoneStatus = "rejected"
)

// Resolution is the administrative outcome of a dispute.
type Resolution string

const (
	ResolutionReleaseToPartner Resolution = "release_to_partner"
	ResolutionRefundToCustomer Resolution = "refund_to_customer"
)

// Transaction is a custodied escrow agreement between a customer (payer)
// and a partner (payee). Parties and, once funded, all money fields are
// immutable. Version increases monotonically on every state change so
// polling clients can detect staleness cheaply.
type Transaction struct {
	ID            uuid.UUID
	Number        string // human-readable, e.g. ANS-202608-0412
	CustomerID    uuid.UUID
	PartnerID     uuid.UUID
	TotalAmount   int64 // KRW, whole won
	PlatformFee   int64 // frozen at funding time
	PartnerPayout int64 // TotalAmount - PlatformFee
	Status        Status
	Version       int64
	Milestones    []*Milestone
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	FundedAt      *time.Time
	ClosedAt      *time.Time // set when a terminal status is reached
}

// Milestone is a sub-deliverable with its own share of the custodied funds.
type Milestone struct {
	ID               uuid.UUID
	TransactionID    uuid.UUID
	Position         int // 0-based order within the transaction
	Name             string
	Description      string
	Amount           int64
	Percentage       int
	DueDate          *time.Time
	Status           MilestoneStatus
	ProofDescription string
	RejectReason     string
	ReleasedAt       *time.Time
}

// Milestone returns the milestone with the given id, or nil.
func (t *Transaction) Milestone(id uuid.UUID) *Milestone {
	for _, m := range t.Milestones {
		if m.ID == id {
			return m
		}
	}

	return nil
}

// ReleasedAmount is the sum of milestone amounts already released from custody.
func (t *Transaction) ReleasedAmount() int64 {
	var sum int64

	for _, m := range t.Milestones {
		if m.Status == MilestoneReleased {
			sum += m.Amount
		}
	}

	return sum
}

// Party reports whether the given actor is one of the transaction's parties.
func (t *Transaction) Party(actorID uuid.UUID) bool {
	return actorID == t.CustomerID || actorID == t.PartnerID
}

// ListFilter narrows ListTransactions results.
type ListFilter struct {
	PartyID *uuid.UUID // matches customer or partner
	Status  *Status
}
