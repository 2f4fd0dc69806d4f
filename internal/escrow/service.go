package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/gateway"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=escrow
type Repository interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByMilestone(ctx context.Context, milestoneID uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	Balance(ctx context.Context, txID uuid.UUID, account Account) (int64, error)

	// Begin opens a database transaction holding a row lock on the escrow
	// transaction, serializing concurrent state changes on it.
	Begin(ctx context.Context, txID uuid.UUID) (Tx, error)
}

// Tx is one locked unit of work on a single escrow transaction. Status
// changes, settlement entries and system messages written through it become
// visible together on Commit or not at all.
type Tx interface {
	// Transaction returns the row-locked snapshot, milestones included.
	Transaction() *Transaction

	SetStatus(ctx context.Context, s Status) error
	SetFunding(ctx context.Context, fee, payout int64) error
	SetMilestone(ctx context.Context, m *Milestone) error
	AddLedgerEntries(ctx context.Context, entries []LedgerEntry) error
	AppendSystemMessage(ctx context.Context, body string) error
	MarkDisputeResolved(ctx context.Context, disputeID uuid.UUID, outcome Resolution, resolverID uuid.UUID) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
	gw   gateway.Gateway
	fees FeeSchedule
}

func NewService(repo Repository, gw gateway.Gateway, fees FeeSchedule) *Service {
	return &Service{repo: repo, gw: gw, fees: fees}
}

// CaptureKey is the idempotency key for funding a transaction.
func CaptureKey(txID uuid.UUID) string { return txID.String() + ":capture" }

// RefundKey is the idempotency key for refunding a transaction.
func RefundKey(txID uuid.UUID) string { return txID.String() + ":refund" }

type MilestoneParams struct {
	Name        string
	Description string
	Amount      int64
	Percentage  int
	DueDate     *time.Time
}

type CreateParams struct {
	CustomerID  uuid.UUID
	PartnerID   uuid.UUID
	TotalAmount int64
	Milestones  []MilestoneParams
}

func (p CreateParams) validate() error {
	if p.CustomerID == p.PartnerID {
		return &ValidationError{Reason: "customer and partner must differ"}
	}

	if p.TotalAmount <= 0 {
		return &ValidationError{Reason: "total amount must be positive"}
	}

	if len(p.Milestones) == 0 {
		return &ValidationError{Reason: "at least one milestone is required"}
	}

	var amountSum int64

	var pctSum int

	for _, m := range p.Milestones {
		if strings.TrimSpace(m.Name) == "" {
			return &ValidationError{Reason: "milestone name must not be empty"}
		}

		if m.Amount <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("milestone %q amount must be positive", m.Name)}
		}

		amountSum += m.Amount
		pctSum += m.Percentage
	}

	if pctSum != 100 {
		return &ValidationError{Reason: fmt.Sprintf("milestone percentages sum to %d, want 100", pctSum)}
	}

	if amountSum != p.TotalAmount {
		return &ValidationError{Reason: fmt.Sprintf("milestone amounts sum to %d, want %d", amountSum, p.TotalAmount)}
	}

	return nil
}

// Create records a new transaction in INITIATED with its full milestone
// plan. Milestones are fixed at creation; only their statuses move later.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	t := &Transaction{
		CustomerID:  params.CustomerID,
		PartnerID:   params.PartnerID,
		TotalAmount: params.TotalAmount,
		Status:      StatusInitiated,
	}

	for i, m := range params.Milestones {
		t.Milestones = append(t.Milestones, &Milestone{
			Position:    i,
			Name:        m.Name,
			Description: m.Description,
			Amount:      m.Amount,
			Percentage:  m.Percentage,
			DueDate:     m.DueDate,
			Status:      MilestonePending,
		})
	}

	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// Balance reports the current ledger balance of one account for the
// transaction. Always computed from the ledger, never cached.
func (s *Service) Balance(ctx context.Context, txID uuid.UUID, account Account) (int64, error) {
	return s.repo.Balance(ctx, txID, account)
}

// Fund captures the full amount into custody and moves the transaction to
// FUNDED. The platform fee is computed and frozen here. A gateway failure
// or timeout leaves the transaction untouched in INITIATED.
func (s *Service) Fund(ctx context.Context, txID, actorID uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.Begin(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if !CanTransition(t.Status, StatusFunded) {
		return nil, &InvalidStateError{Action: "fund", Current: string(t.Status)}
	}

	if actorID != t.CustomerID {
		return nil, &UnauthorizedActionError{Action: "fund", ActorID: actorID, Reason: "only the customer funds the escrow"}
	}

	key := CaptureKey(t.ID)
	if err := s.gw.Capture(ctx, gateway.CaptureParams{Key: key, CustomerID: t.CustomerID, Amount: t.TotalAmount}); err != nil {
		slog.Error("payment capture failed", "key", key, "error", err)
		return nil, err
	}

	fee := s.fees.Fee(t.TotalAmount)
	now := time.Now()
	t.PlatformFee = fee
	t.PartnerPayout = t.TotalAmount - fee
	t.FundedAt = &now

	if err := tx.SetFunding(ctx, t.PlatformFee, t.PartnerPayout); err != nil {
		return nil, err
	}

	if err := s.setStatus(ctx, tx, t, StatusFunded); err != nil {
		return nil, err
	}

	for _, m := range t.Milestones {
		m.Status = MilestoneFunded
		if err := tx.SetMilestone(ctx, m); err != nil {
			return nil, err
		}
	}

	if err := tx.AddLedgerEntries(ctx, captureEntries(t, key)); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Escrow %s funded: %d KRW is now held in custody.", t.Number, t.TotalAmount)
	if err := tx.AppendSystemMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit funding: %w", err)
	}

	return t, nil
}

// ReplayFunding applies the funded transition for a capture that the
// gateway confirmed out of band, via a settlement record. No new capture is
// issued; the settlement file is the confirmation. Replaying a transaction
// that already moved past INITIATED is a no-op, so reconciliation can run
// the same file any number of times.
func (s *Service) ReplayFunding(ctx context.Context, txID uuid.UUID) (*Transaction, bool, error) {
	tx, err := s.repo.Begin(ctx, txID)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if !CanTransition(t.Status, StatusFunded) {
		return t, false, nil
	}

	fee := s.fees.Fee(t.TotalAmount)
	now := time.Now()
	t.PlatformFee = fee
	t.PartnerPayout = t.TotalAmount - fee
	t.FundedAt = &now

	if err := tx.SetFunding(ctx, t.PlatformFee, t.PartnerPayout); err != nil {
		return nil, false, err
	}

	if err := s.setStatus(ctx, tx, t, StatusFunded); err != nil {
		return nil, false, err
	}

	for _, m := range t.Milestones {
		m.Status = MilestoneFunded
		if err := tx.SetMilestone(ctx, m); err != nil {
			return nil, false, err
		}
	}

	key := CaptureKey(t.ID)
	if err := tx.AddLedgerEntries(ctx, captureEntries(t, key)); err != nil {
		return nil, false, err
	}

	msg := fmt.Sprintf("Escrow %s funded: %d KRW is now held in custody.", t.Number, t.TotalAmount)
	if err := tx.AppendSystemMessage(ctx, msg); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit funding replay: %w", err)
	}

	slog.Info("replayed funding from settlement record", "key", key, "number", t.Number)

	return t, true, nil
}

// Start moves a funded transaction into IN_PROGRESS once the partner
// begins work.
func (s *Service) Start(ctx context.Context, txID, actorID uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.Begin(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if !CanTransition(t.Status, StatusInProgress) {
		return nil, &InvalidStateError{Action: "start", Current: string(t.Status)}
	}

	if actorID != t.PartnerID {
		return nil, &UnauthorizedActionError{Action: "start", ActorID: actorID, Reason: "only the partner starts the work"}
	}

	if err := s.setStatus(ctx, tx, t, StatusInProgress); err != nil {
		return nil, err
	}

	if err := tx.AppendSystemMessage(ctx, "The partner has started the work."); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit start: %w", err)
	}

	return t, nil
}

// BeginMilestone moves a funded milestone into IN_PROGRESS.
func (s *Service) BeginMilestone(ctx context.Context, milestoneID, actorID uuid.UUID) (*Transaction, error) {
	return s.milestoneAction(ctx, milestoneID, "begin milestone", func(tx Tx, t *Transaction, m *Milestone) error {
		if actorID != t.PartnerID {
			return &UnauthorizedActionError{Action: "begin milestone", ActorID: actorID, Reason: "only the partner works on milestones"}
		}

		if !CanTransitionMilestone(m.Status, MilestoneInProgress) || m.Status != MilestoneFunded {
			return &InvalidStateError{Action: "begin milestone", Current: string(m.Status)}
		}

		m.Status = MilestoneInProgress
		if err := tx.SetMilestone(ctx, m); err != nil {
			return err
		}

		return tx.AppendSystemMessage(ctx, fmt.Sprintf("Milestone %q is now in progress.", m.Name))
	})
}

// SubmitMilestone records the partner's proof of completion and hands the
// milestone over for customer review.
func (s *Service) SubmitMilestone(ctx context.Context, milestoneID, actorID uuid.UUID, proof string) (*Transaction, error) {
	return s.milestoneAction(ctx, milestoneID, "submit milestone", func(tx Tx, t *Transaction, m *Milestone) error {
		if actorID != t.PartnerID {
			return &UnauthorizedActionError{Action: "submit milestone", ActorID: actorID, Reason: "only the partner submits work"}
		}

		if !CanTransitionMilestone(m.Status, MilestoneSubmitted) {
			return &InvalidStateError{Action: "submit milestone", Current: string(m.Status)}
		}

		m.Status = MilestoneSubmitted
		m.ProofDescription = proof
		if err := tx.SetMilestone(ctx, m); err != nil {
			return err
		}

		return tx.AppendSystemMessage(ctx, fmt.Sprintf("Milestone %q submitted for review.", m.Name))
	})
}

// ApproveMilestone approves a submitted milestone and settles it in the
// same unit of work: the client contract collapses APPROVED and RELEASED
// into a single reviewer call, the engine still walks both states. When the
// last milestone releases, the transaction advances to COMPLETED on its own.
func (s *Service) ApproveMilestone(ctx context.Context, milestoneID, actorID uuid.UUID) (*Transaction, error) {
	return s.milestoneAction(ctx, milestoneID, "approve milestone", func(tx Tx, t *Transaction, m *Milestone) error {
		if actorID != t.CustomerID {
			return &UnauthorizedActionError{Action: "approve milestone", ActorID: actorID, Reason: "only the customer approves work"}
		}

		if !CanTransitionMilestone(m.Status, MilestoneApproved) {
			return &InvalidStateError{Action: "approve milestone", Current: string(m.Status)}
		}

		now := time.Now()
		m.Status = MilestoneReleased
		m.ReleasedAt = &now
		if err := tx.SetMilestone(ctx, m); err != nil {
			return err
		}

		p := t.payoutFor(m)
		if err := tx.AddLedgerEntries(ctx, releaseEntries(t, m, p)); err != nil {
			return err
		}

		msg := fmt.Sprintf("Milestone %q approved: %d KRW released to the partner.", m.Name, p.Payout)
		if err := tx.AppendSystemMessage(ctx, msg); err != nil {
			return err
		}

		for _, other := range t.Milestones {
			if other.Status != MilestoneReleased {
				return nil
			}
		}

		if err := s.setStatus(ctx, tx, t, StatusCompleted); err != nil {
			return err
		}

		return tx.AppendSystemMessage(ctx, "All milestones released. The escrow is complete.")
	})
}

// RejectMilestone sends a submitted milestone back to the partner.
func (s *Service) RejectMilestone(ctx context.Context, milestoneID, actorID uuid.UUID, reason string) (*Transaction, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Reason: "rejection reason must not be empty"}
	}

	return s.milestoneAction(ctx, milestoneID, "reject milestone", func(tx Tx, t *Transaction, m *Milestone) error {
		if actorID != t.CustomerID {
			return &UnauthorizedActionError{Action: "reject milestone", ActorID: actorID, Reason: "only the customer reviews work"}
		}

		if !CanTransitionMilestone(m.Status, MilestoneRejected) {
			return &InvalidStateError{Action: "reject milestone", Current: string(m.Status)}
		}

		m.Status = MilestoneRejected
		m.RejectReason = reason
		if err := tx.SetMilestone(ctx, m); err != nil {
			return err
		}

		return tx.AppendSystemMessage(ctx, fmt.Sprintf("Milestone %q rejected: %s", m.Name, reason))
	})
}

// ResubmitMilestone puts a rejected milestone back in progress.
func (s *Service) ResubmitMilestone(ctx context.Context, milestoneID, actorID uuid.UUID) (*Transaction, error) {
	return s.milestoneAction(ctx, milestoneID, "resubmit milestone", func(tx Tx, t *Transaction, m *Milestone) error {
		if actorID != t.PartnerID {
			return &UnauthorizedActionError{Action: "resubmit milestone", ActorID: actorID, Reason: "only the partner resubmits work"}
		}

		if m.Status != MilestoneRejected {
			return &InvalidStateError{Action: "resubmit milestone", Current: string(m.Status)}
		}

		m.Status = MilestoneInProgress
		if err := tx.SetMilestone(ctx, m); err != nil {
			return err
		}

		return tx.AppendSystemMessage(ctx, fmt.Sprintf("Milestone %q is being reworked.", m.Name))
	})
}

// Release closes out a completed transaction. All funds moved when the
// individual milestones released, so this is the final bookkeeping step.
func (s *Service) Release(ctx context.Context, txID, actorID uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.Begin(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if !CanTransition(t.Status, StatusReleased) || t.Status != StatusCompleted {
		return nil, &InvalidStateError{Action: "release", Current: string(t.Status)}
	}

	if actorID != t.CustomerID {
		return nil, &UnauthorizedActionError{Action: "release", ActorID: actorID, Reason: "only the customer releases the escrow"}
	}

	if err := s.setStatus(ctx, tx, t, StatusReleased); err != nil {
		return nil, err
	}

	if err := tx.AppendSystemMessage(ctx, "Escrow released. Thank you for transacting on the platform."); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit release: %w", err)
	}

	return t, nil
}

// Cancel abandons a transaction that was never funded. Nothing was
// captured, so there is nothing to refund.
func (s *Service) Cancel(ctx context.Context, txID, actorID uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.Begin(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if !CanTransition(t.Status, StatusCancelled) {
		return nil, &InvalidStateError{Action: "cancel", Current: string(t.Status)}
	}

	if !t.Party(actorID) {
		return nil, &UnauthorizedActionError{Action: "cancel", ActorID: actorID, Reason: "not a party to this escrow"}
	}

	if err := s.setStatus(ctx, tx, t, StatusCancelled); err != nil {
		return nil, err
	}

	if err := tx.AppendSystemMessage(ctx, "Escrow cancelled before funding."); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	return t, nil
}

// Resolve settles a disputed transaction. Releases act only on the
// un-released remainder; milestones released before the dispute are never
// reversed. Called by the dispute manager, which validates the dispute row.
func (s *Service) Resolve(ctx context.Context, txID, disputeID, resolverID uuid.UUID, outcome Resolution) (*Transaction, error) {
	tx, err := s.repo.Begin(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if t.Status != StatusDisputed {
		return nil, &InvalidStateError{Action: "resolve dispute", Current: string(t.Status)}
	}

	switch outcome {
	case ResolutionReleaseToPartner:
		if err := s.releaseRemainder(ctx, tx, t); err != nil {
			return nil, err
		}

		if err := s.setStatus(ctx, tx, t, StatusReleased); err != nil {
			return nil, err
		}

		if err := tx.AppendSystemMessage(ctx, "Dispute resolved: remaining funds released to the partner."); err != nil {
			return nil, err
		}

	case ResolutionRefundToCustomer:
		if err := s.refundRemainder(ctx, tx, t); err != nil {
			return nil, err
		}

		if err := s.setStatus(ctx, tx, t, StatusRefunded); err != nil {
			return nil, err
		}

		if err := tx.AppendSystemMessage(ctx, "Dispute resolved: remaining funds refunded to the customer."); err != nil {
			return nil, err
		}

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown resolution outcome %q", outcome)}
	}

	if err := tx.MarkDisputeResolved(ctx, disputeID, outcome, resolverID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolution: %w", err)
	}

	return t, nil
}

// releaseRemainder settles every milestone that has not released yet,
// using the frozen payout plan. Administrative path: the per-milestone
// review flow is bypassed by design of the resolution action.
func (s *Service) releaseRemainder(ctx context.Context, tx Tx, t *Transaction) error {
	now := time.Now()

	for _, m := range t.Milestones {
		if m.Status == MilestoneReleased {
			continue
		}

		m.Status = MilestoneReleased
		m.ReleasedAt = &now
		if err := tx.SetMilestone(ctx, m); err != nil {
			return err
		}

		if err := tx.AddLedgerEntries(ctx, releaseEntries(t, m, t.payoutFor(m))); err != nil {
			return err
		}
	}

	return nil
}

// refundRemainder returns the un-released custody balance to the payer via
// the gateway. Milestones stay frozen in whatever state the dispute caught
// them in; only the money moves.
func (s *Service) refundRemainder(ctx context.Context, tx Tx, t *Transaction) error {
	remainder := t.TotalAmount - t.ReleasedAmount()
	if remainder <= 0 {
		return nil
	}

	key := RefundKey(t.ID)
	if err := s.gw.Refund(ctx, gateway.RefundParams{Key: key, CustomerID: t.CustomerID, Amount: remainder}); err != nil {
		slog.Error("payment refund failed", "key", key, "error", err)
		return err
	}

	return tx.AddLedgerEntries(ctx, refundEntries(t, remainder, key))
}

// milestoneAction locates the owning transaction, takes its lock and runs
// fn against the locked snapshot. Terminal transactions and open disputes
// reject every milestone action before fn runs.
func (s *Service) milestoneAction(ctx context.Context, milestoneID uuid.UUID, action string, fn func(tx Tx, t *Transaction, m *Milestone) error) (*Transaction, error) {
	owner, err := s.repo.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := tx.Transaction()

	if t.Status.Terminal() || t.Status == StatusDisputed {
		return nil, &InvalidStateError{Action: action, Current: string(t.Status)}
	}

	m := t.Milestone(milestoneID)
	if m == nil {
		return nil, ErrNotFound
	}

	if err := fn(tx, t, m); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", action, err)
	}

	return t, nil
}

func (s *Service) setStatus(ctx context.Context, tx Tx, t *Transaction, next Status) error {
	if err := tx.SetStatus(ctx, next); err != nil {
		return err
	}

	t.Status = next
	t.Version++

	if next.Terminal() {
		now := time.Now()
		t.ClosedAt = &now
	}

	return nil
}
