package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/escrow"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectTransactionColumns = `
	t.id, t.number, t.customer_id, t.partner_id, t.total_amount, t.platform_fee,
	t.partner_payout, t.status, t.version, t.created_at, t.updated_at, t.funded_at, t.closed_at
`

const selectMilestoneColumns = `
	m.id, m.transaction_id, m.position, m.name, m.description, m.amount, m.percentage,
	m.due_date, m.status, m.proof_description, m.reject_reason, m.released_at
`

func scanTransaction(s scanner) (*escrow.Transaction, error) {
	var t escrow.Transaction

	var statusStr string

	if err := s.Scan(
		&t.ID, &t.Number, &t.CustomerID, &t.PartnerID, &t.TotalAmount, &t.PlatformFee,
		&t.PartnerPayout, &statusStr, &t.Version, &t.CreatedAt, &t.UpdatedAt, &t.FundedAt, &t.ClosedAt,
	); err != nil {
		return nil, err
	}

	t.Status = escrow.Status(statusStr)

	return &t, nil
}

func scanMilestone(s scanner) (*escrow.Milestone, error) {
	var m escrow.Milestone

	var statusStr string

	var proof, reason sql.NullString

	if err := s.Scan(
		&m.ID, &m.TransactionID, &m.Position, &m.Name, &m.Description, &m.Amount, &m.Percentage,
		&m.DueDate, &statusStr, &proof, &reason, &m.ReleasedAt,
	); err != nil {
		return nil, err
	}

	m.Status = escrow.MilestoneStatus(statusStr)
	m.ProofDescription = proof.String
	m.RejectReason = reason.String

	return &m, nil
}

func loadMilestones(ctx context.Context, q querier, txID uuid.UUID) ([]*escrow.Milestone, error) {
	query := `SELECT ` + selectMilestoneColumns + `
		FROM escrow_milestones m
		WHERE m.transaction_id = $1
		ORDER BY m.position ASC`

	rows, err := q.QueryContext(ctx, query, txID)
	if err != nil {
		return nil, fmt.Errorf("listing milestones: %w", err)
	}
	defer rows.Close()

	var ms []*escrow.Milestone

	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning milestone: %w", err)
		}

		ms = append(ms, m)
	}

	return ms, rows.Err()
}

// CreateTransaction inserts the transaction and its milestone plan in one
// database transaction. The escrow number is assigned from a sequence.
func (s *Store) CreateTransaction(ctx context.Context, t *escrow.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO escrow_transactions (number, customer_id, partner_id, total_amount, status, created_at)
		VALUES ('ANS-' || to_char(NOW(), 'YYYYMM') || '-' || lpad(nextval('escrow_number_seq')::text, 4, '0'),
			$1, $2, $3, $4, NOW())
		RETURNING id, number, created_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		t.CustomerID,
		t.PartnerID,
		t.TotalAmount,
		t.Status,
	).Scan(&t.ID, &t.Number, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating escrow transaction: %w", err)
	}

	msQuery := `
		INSERT INTO escrow_milestones (transaction_id, position, name, description, amount, percentage, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	for _, m := range t.Milestones {
		m.TransactionID = t.ID

		err := dbTx.QueryRowContext(ctx, msQuery,
			t.ID, m.Position, m.Name, m.Description, m.Amount, m.Percentage, m.DueDate, m.Status,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("creating milestone %d: %w", m.Position, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing creation: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*escrow.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM escrow_transactions t WHERE t.id = $1`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, escrow.ErrNotFound
		}

		return nil, fmt.Errorf("getting escrow transaction: %w", err)
	}

	if t.Milestones, err = loadMilestones(ctx, s.db, t.ID); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Store) GetByMilestone(ctx context.Context, milestoneID uuid.UUID) (*escrow.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM escrow_transactions t
		JOIN escrow_milestones m ON m.transaction_id = t.id
		WHERE m.id = $1`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, milestoneID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, escrow.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction by milestone: %w", err)
	}

	if t.Milestones, err = loadMilestones(ctx, s.db, t.ID); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter escrow.ListFilter) ([]*escrow.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM escrow_transactions t WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.PartyID != nil {
		query += fmt.Sprintf(" AND (t.customer_id = $%d OR t.partner_id = $%d)", argIdx, argIdx)

		args = append(args, *filter.PartyID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY t.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing escrow transactions: %w", err)
	}
	defer rows.Close()

	var ts []*escrow.Transaction

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning escrow transaction: %w", err)
		}

		ts = append(ts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating escrow rows: %w", err)
	}

	for _, t := range ts {
		if t.Milestones, err = loadMilestones(ctx, s.db, t.ID); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

// Balance sums the ledger for one account of the transaction. The ledger
// is append-only, so the sum is the balance.
func (s *Store) Balance(ctx context.Context, txID uuid.UUID, account escrow.Account) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE transaction_id = $1 AND account = $2`

	var balance int64
	if err := s.db.QueryRowContext(ctx, query, txID, account).Scan(&balance); err != nil {
		return 0, fmt.Errorf("summing ledger: %w", err)
	}

	return balance, nil
}

// Begin opens a database transaction and locks the escrow row. Concurrent
// state changes on the same transaction serialize here; different
// transactions never block each other.
func (s *Store) Begin(ctx context.Context, txID uuid.UUID) (escrow.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning escrow tx: %w", err)
	}

	query := `SELECT ` + selectTransactionColumns + ` FROM escrow_transactions t WHERE t.id = $1 FOR UPDATE`

	t, err := scanTransaction(dbTx.QueryRowContext(ctx, query, txID))
	if err != nil {
		dbTx.Rollback()

		if err == sql.ErrNoRows {
			return nil, escrow.ErrNotFound
		}

		return nil, fmt.Errorf("locking escrow transaction: %w", err)
	}

	if t.Milestones, err = loadMilestones(ctx, dbTx, t.ID); err != nil {
		dbTx.Rollback()
		return nil, err
	}

	return &escrowTx{tx: dbTx, t: t}, nil
}

type escrowTx struct {
	tx *sql.Tx
	t  *escrow.Transaction
}

func (e *escrowTx) Transaction() *escrow.Transaction { return e.t }
func (e *escrowTx) Commit() error                    { return e.tx.Commit() }
func (e *escrowTx) Rollback() error                  { return e.tx.Rollback() }

func (e *escrowTx) SetStatus(ctx context.Context, s escrow.Status) error {
	query := `
		UPDATE escrow_transactions
		SET status = $1, version = version + 1, updated_at = NOW(),
			closed_at = CASE WHEN $2 THEN NOW() ELSE closed_at END
		WHERE id = $3
	`

	if _, err := e.tx.ExecContext(ctx, query, s, s.Terminal(), e.t.ID); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	return nil
}

func (e *escrowTx) SetFunding(ctx context.Context, fee, payout int64) error {
	query := `
		UPDATE escrow_transactions
		SET platform_fee = $1, partner_payout = $2, funded_at = NOW(), updated_at = NOW()
		WHERE id = $3
	`

	if _, err := e.tx.ExecContext(ctx, query, fee, payout, e.t.ID); err != nil {
		return fmt.Errorf("freezing funding terms: %w", err)
	}

	return nil
}

func (e *escrowTx) SetMilestone(ctx context.Context, m *escrow.Milestone) error {
	query := `
		UPDATE escrow_milestones
		SET status = $1, proof_description = $2, reject_reason = $3, released_at = $4
		WHERE id = $5
	`

	_, err := e.tx.ExecContext(ctx, query,
		m.Status,
		sql.NullString{String: m.ProofDescription, Valid: m.ProofDescription != ""},
		sql.NullString{String: m.RejectReason, Valid: m.RejectReason != ""},
		m.ReleasedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating milestone: %w", err)
	}

	return nil
}

func (e *escrowTx) AddLedgerEntries(ctx context.Context, entries []escrow.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (transaction_id, milestone_id, account, amount, key, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	for _, entry := range entries {
		_, err := e.tx.ExecContext(ctx, query,
			entry.TransactionID,
			entry.MilestoneID,
			entry.Account,
			entry.Amount,
			sql.NullString{String: entry.Key, Valid: entry.Key != ""},
		)
		if err != nil {
			return fmt.Errorf("appending ledger entry: %w", err)
		}
	}

	return nil
}

// AppendSystemMessage inserts a system message into the transaction's
// conversation. System messages have no sender and are born read.
func (e *escrowTx) AppendSystemMessage(ctx context.Context, body string) error {
	query := `
		INSERT INTO messages (transaction_id, sender_id, type, content, contains_contact_info, is_read, created_at)
		VALUES ($1, NULL, 'system', $2, FALSE, TRUE, NOW())
	`

	if _, err := e.tx.ExecContext(ctx, query, e.t.ID, body); err != nil {
		return fmt.Errorf("appending system message: %w", err)
	}

	return nil
}

func (e *escrowTx) MarkDisputeResolved(ctx context.Context, disputeID uuid.UUID, outcome escrow.Resolution, resolverID uuid.UUID) error {
	query := `
		UPDATE disputes
		SET outcome = $1, resolved_by = $2, resolved_at = NOW()
		WHERE id = $3 AND resolved_at IS NULL
	`

	res, err := e.tx.ExecContext(ctx, query, outcome, resolverID, disputeID)
	if err != nil {
		return fmt.Errorf("resolving dispute: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &escrow.ConflictError{Reason: "dispute already resolved"}
	}

	return nil
}
