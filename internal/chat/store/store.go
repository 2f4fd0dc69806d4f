package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/chat"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectMessageColumns = `
	id, transaction_id, sender_id, type, content,
	contains_contact_info, is_read, seq, created_at`

func scanMessage(row interface{ Scan(dest ...any) error }) (*chat.Message, error) {
	var m chat.Message

	var senderID uuid.NullUUID

	err := row.Scan(
		&m.ID,
		&m.TransactionID,
		&senderID,
		&m.Type,
		&m.Content,
		&m.ContainsContactInfo,
		&m.IsRead,
		&m.Seq,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if senderID.Valid {
		m.SenderID = &senderID.UUID
	}

	return &m, nil
}

// CreateMessage inserts a party-authored message. System messages are
// written by the escrow store inside its own locked unit of work, never here.
func (s *Store) CreateMessage(ctx context.Context, m *chat.Message) error {
	query := `
		INSERT INTO messages (transaction_id, sender_id, type, content, contains_contact_info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, seq, created_at`

	err := s.db.QueryRowContext(ctx, query,
		m.TransactionID, m.SenderID, m.Type, m.Content, m.ContainsContactInfo,
	).Scan(&m.ID, &m.Seq, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

func (s *Store) ListMessages(ctx context.Context, txID uuid.UUID) ([]*chat.Message, error) {
	query := `
		SELECT ` + selectMessageColumns + `
		FROM messages
		WHERE transaction_id = $1
		ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, txID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*chat.Message

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		msgs = append(msgs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// UnreadCount counts the other party's unread messages. System messages are
// stored read and never appear here.
func (s *Store) UnreadCount(ctx context.Context, txID, viewerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE transaction_id = $1
		  AND type = 'user'
		  AND sender_id IS DISTINCT FROM $2
		  AND NOT is_read`

	var count int
	if err := s.db.QueryRowContext(ctx, query, txID, viewerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}

	return count, nil
}

func (s *Store) MarkRead(ctx context.Context, txID, viewerID uuid.UUID) error {
	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE transaction_id = $1
		  AND type = 'user'
		  AND sender_id IS DISTINCT FROM $2
		  AND NOT is_read`

	if _, err := s.db.ExecContext(ctx, query, txID, viewerID); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	return nil
}
