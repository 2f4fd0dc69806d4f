package dispute

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/escrow"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=dispute
type Repository interface {
	// Open records the dispute and moves the transaction to DISPUTED in one
	// unit of work. A second open dispute on the same transaction fails with
	// ConflictError regardless of interleaving.
	Open(ctx context.Context, d *Dispute) error

	GetDispute(ctx context.Context, id uuid.UUID) (*Dispute, error)
	GetByTransaction(ctx context.Context, txID uuid.UUID) (*Dispute, error)
	ListOpen(ctx context.Context) ([]*Dispute, error)
}

type Service struct {
	repo    Repository
	escrows *escrow.Service
}

func NewService(repo Repository, escrows *escrow.Service) *Service {
	return &Service{repo: repo, escrows: escrows}
}

// Open raises a dispute on the transaction, freezing further settlement
// until an administrator resolves it. Only a party may raise one, and only
// while the transaction is FUNDED, IN_PROGRESS or COMPLETED.
func (s *Service) Open(ctx context.Context, txID, raiserID uuid.UUID, reason Reason, description string) (*Dispute, error) {
	if !reason.Valid() {
		return nil, &escrow.ValidationError{Reason: "unknown dispute reason " + string(reason)}
	}

	if strings.TrimSpace(description) == "" {
		return nil, &escrow.ValidationError{Reason: "dispute description must not be empty"}
	}

	t, err := s.escrows.Get(ctx, txID)
	if err != nil {
		return nil, err
	}

	if !t.Party(raiserID) {
		return nil, &escrow.UnauthorizedActionError{Action: "open dispute", ActorID: raiserID, Reason: "not a party to this escrow"}
	}

	// The store re-checks this under the row lock; checking here gives the
	// common case a typed error without opening a transaction. DISPUTED is
	// its own class: the blocker is the other open dispute, not the state.
	if t.Status == escrow.StatusDisputed {
		return nil, &escrow.ConflictError{Reason: "a dispute is already open on this escrow"}
	}

	if !escrow.CanDispute(t.Status) {
		return nil, &escrow.InvalidStateError{Action: "open dispute", Current: string(t.Status)}
	}

	d := &Dispute{
		TransactionID: txID,
		RaisedBy:      raiserID,
		Reason:        reason,
		Description:   description,
	}

	if err := s.repo.Open(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	return s.repo.GetDispute(ctx, id)
}

// ByTransaction returns the transaction's most recent dispute.
func (s *Service) ByTransaction(ctx context.Context, txID uuid.UUID) (*Dispute, error) {
	return s.repo.GetByTransaction(ctx, txID)
}

// ListOpen returns all unresolved disputes, oldest first, for the
// administrative queue.
func (s *Service) ListOpen(ctx context.Context) ([]*Dispute, error) {
	return s.repo.ListOpen(ctx)
}

// Resolve settles the dispute with the given outcome. The un-released
// remainder either goes to the partner or back to the customer; milestones
// released before the dispute stay released. Resolution and settlement
// commit together.
func (s *Service) Resolve(ctx context.Context, disputeID, resolverID uuid.UUID, outcome escrow.Resolution) (*escrow.Transaction, error) {
	d, err := s.repo.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if !d.Open() {
		return nil, &escrow.ConflictError{Reason: "dispute already resolved"}
	}

	return s.escrows.Resolve(ctx, d.TransactionID, d.ID, resolverID, outcome)
}
