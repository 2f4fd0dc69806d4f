package chat

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes party-authored messages from engine-generated ones.
type Type string

const (
	TypeUser   Type = "user"
	TypeSystem Type = "system"
)

// Message is one entry in a transaction's conversation. Content is stored
// redacted; the unredacted original is never persisted anywhere. Seq is a
// per-database monotonic sequence, so readers observe a stable FIFO order
// within each transaction.
type Message struct {
	ID                  uuid.UUID
	TransactionID       uuid.UUID
	SenderID            *uuid.UUID // nil for system messages
	Type                Type
	Content             string
	ContainsContactInfo bool
	IsRead              bool
	Seq                 int64
	CreatedAt           time.Time
}
