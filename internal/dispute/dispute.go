package dispute

import (
	"time"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/escrow"
)

// Reason categorizes what the raiser claims went wrong.
type Reason string

const (
	ReasonNotDelivered      Reason = "not_delivered"
	ReasonQualityIssue      Reason = "quality_issue"
	ReasonScopeDisagreement Reason = "scope_disagreement"
	ReasonOther             Reason = "other"
)

// Valid reports whether the reason is one of the known categories.
func (r Reason) Valid() bool {
	switch r {
	case ReasonNotDelivered, ReasonQualityIssue, ReasonScopeDisagreement, ReasonOther:
		return true
	}

	return false
}

// Dispute is a claim against one transaction. At most one dispute per
// transaction may be open; Outcome stays nil until an administrator resolves
// it.
type Dispute struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	RaisedBy      uuid.UUID
	Reason        Reason
	Description   string
	Outcome       *escrow.Resolution
	ResolverID    *uuid.UUID
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// Open reports whether the dispute is still awaiting resolution.
func (d *Dispute) Open() bool {
	return d.ResolvedAt == nil
}
