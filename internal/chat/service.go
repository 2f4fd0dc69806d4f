package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/redact"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=chat
type Repository interface {
	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, txID uuid.UUID) ([]*Message, error)
	UnreadCount(ctx context.Context, txID, viewerID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, txID, viewerID uuid.UUID) error
}

type Service struct {
	repo    Repository
	escrows *escrow.Service
}

func NewService(repo Repository, escrows *escrow.Service) *Service {
	return &Service{repo: repo, escrows: escrows}
}

// Send appends a message to the transaction's conversation. Content is
// redacted before it is persisted; the original text never reaches storage.
// The second return reports whether contact information was detected, so the
// caller can warn the sender.
func (s *Service) Send(ctx context.Context, txID, senderID uuid.UUID, content string) (*Message, bool, error) {
	if strings.TrimSpace(content) == "" {
		return nil, false, &escrow.ValidationError{Reason: "message content must not be empty"}
	}

	t, err := s.escrows.Get(ctx, txID)
	if err != nil {
		return nil, false, err
	}

	if !t.Party(senderID) {
		return nil, false, &escrow.UnauthorizedActionError{Action: "send message", ActorID: senderID, Reason: "not a party to this escrow"}
	}

	masked, detected := redact.DetectAndMask(content)

	m := &Message{
		TransactionID:       txID,
		SenderID:            &senderID,
		Type:                TypeUser,
		Content:             masked,
		ContainsContactInfo: detected,
	}

	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, false, err
	}

	return m, detected, nil
}

// ListFor returns the full conversation in send order together with the
// viewer's unread count. Only the transaction's parties may read it.
func (s *Service) ListFor(ctx context.Context, txID, viewerID uuid.UUID) ([]*Message, int, error) {
	t, err := s.escrows.Get(ctx, txID)
	if err != nil {
		return nil, 0, err
	}

	if !t.Party(viewerID) {
		return nil, 0, &escrow.UnauthorizedActionError{Action: "read messages", ActorID: viewerID, Reason: "not a party to this escrow"}
	}

	msgs, err := s.repo.ListMessages(ctx, txID)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.repo.UnreadCount(ctx, txID, viewerID)
	if err != nil {
		return nil, 0, err
	}

	return msgs, unread, nil
}

// History returns the conversation without a party check, for operator review.
func (s *Service) History(ctx context.Context, txID uuid.UUID) ([]*Message, error) {
	return s.repo.ListMessages(ctx, txID)
}

// MarkRead marks every message from the other party as read.
func (s *Service) MarkRead(ctx context.Context, txID, viewerID uuid.UUID) error {
	t, err := s.escrows.Get(ctx, txID)
	if err != nil {
		return err
	}

	if !t.Party(viewerID) {
		return &escrow.UnauthorizedActionError{Action: "mark messages read", ActorID: viewerID, Reason: "not a party to this escrow"}
	}

	return s.repo.MarkRead(ctx, txID, viewerID)
}
