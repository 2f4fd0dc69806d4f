package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/daesung-dev/anshim/internal/dispute"
	"github.com/daesung-dev/anshim/internal/escrow"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectDisputeColumns = `
	d.id, d.transaction_id, d.raised_by, d.reason, d.description,
	d.outcome, d.resolved_by, d.created_at, d.resolved_at
`

func scanDispute(row interface{ Scan(dest ...any) error }) (*dispute.Dispute, error) {
	var d dispute.Dispute

	var outcome sql.NullString

	var resolvedBy uuid.NullUUID

	err := row.Scan(
		&d.ID, &d.TransactionID, &d.RaisedBy, &d.Reason, &d.Description,
		&outcome, &resolvedBy, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if outcome.Valid {
		d.Outcome = new(escrow.Resolution(outcome.String))
	}

	if resolvedBy.Valid {
		d.ResolverID = &resolvedBy.UUID
	}

	return &d, nil
}

// Open records the dispute and forces the transaction into DISPUTED as one
// unit of work. The row lock serializes against every other state change, so
// a concurrent second open always observes DISPUTED and conflicts; the
// partial unique index on open disputes backstops the same invariant at the
// schema level.
func (s *Store) Open(ctx context.Context, d *dispute.Dispute) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning dispute tx: %w", err)
	}
	defer dbTx.Rollback()

	var status escrow.Status

	err = dbTx.QueryRowContext(ctx,
		`SELECT status FROM escrow_transactions WHERE id = $1 FOR UPDATE`, d.TransactionID,
	).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return escrow.ErrNotFound
		}

		return fmt.Errorf("locking escrow transaction: %w", err)
	}

	// A concurrent second open serializes on the row lock and sees DISPUTED
	// here; it must surface as a conflict, not an illegal transition.
	if status == escrow.StatusDisputed {
		return &escrow.ConflictError{Reason: "a dispute is already open on this escrow"}
	}

	if !escrow.CanDispute(status) {
		return &escrow.InvalidStateError{Action: "open dispute", Current: string(status)}
	}

	insert := `
		INSERT INTO disputes (transaction_id, raised_by, reason, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = dbTx.QueryRowContext(ctx, insert, d.TransactionID, d.RaisedBy, d.Reason, d.Description).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &escrow.ConflictError{Reason: "a dispute is already open on this escrow"}
		}

		return fmt.Errorf("creating dispute: %w", err)
	}

	update := `
		UPDATE escrow_transactions
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`

	if _, err := dbTx.ExecContext(ctx, update, escrow.StatusDisputed, d.TransactionID); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	msg := `
		INSERT INTO messages (transaction_id, sender_id, type, content, contains_contact_info, is_read, created_at)
		VALUES ($1, NULL, 'system', $2, FALSE, TRUE, NOW())
	`

	body := fmt.Sprintf("A dispute has been opened (%s). Settlement is frozen until resolution.", d.Reason)
	if _, err := dbTx.ExecContext(ctx, msg, d.TransactionID, body); err != nil {
		return fmt.Errorf("appending system message: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing dispute: %w", err)
	}

	return nil
}

func (s *Store) GetDispute(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	query := `SELECT ` + selectDisputeColumns + ` FROM disputes d WHERE d.id = $1`

	d, err := scanDispute(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, escrow.ErrNotFound
		}

		return nil, fmt.Errorf("getting dispute: %w", err)
	}

	return d, nil
}

// GetByTransaction returns the transaction's most recent dispute.
func (s *Store) GetByTransaction(ctx context.Context, txID uuid.UUID) (*dispute.Dispute, error) {
	query := `SELECT ` + selectDisputeColumns + `
		FROM disputes d
		WHERE d.transaction_id = $1
		ORDER BY d.created_at DESC
		LIMIT 1`

	d, err := scanDispute(s.db.QueryRowContext(ctx, query, txID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, escrow.ErrNotFound
		}

		return nil, fmt.Errorf("getting dispute by transaction: %w", err)
	}

	return d, nil
}

func (s *Store) ListOpen(ctx context.Context) ([]*dispute.Dispute, error) {
	query := `SELECT ` + selectDisputeColumns + `
		FROM disputes d
		WHERE d.resolved_at IS NULL
		ORDER BY d.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing open disputes: %w", err)
	}
	defer rows.Close()

	var ds []*dispute.Dispute

	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dispute: %w", err)
		}

		ds = append(ds, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating disputes: %w", err)
	}

	return ds, nil
}
