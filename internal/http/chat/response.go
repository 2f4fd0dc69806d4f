package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/chat"
)

type messageResponse struct {
	ID                  uuid.UUID  `json:"id"`
	SenderID            *uuid.UUID `json:"sender_id,omitempty"`
	Type                chat.Type  `json:"type"`
	Content             string     `json:"content"`
	ContainsContactInfo bool       `json:"contains_contact_info"`
	IsRead              bool       `json:"is_read"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toResponse(m *chat.Message) messageResponse {
	return messageResponse{
		ID:                  m.ID,
		SenderID:            m.SenderID,
		Type:                m.Type,
		Content:             m.Content,
		ContainsContactInfo: m.ContainsContactInfo,
		IsRead:              m.IsRead,
		CreatedAt:           m.CreatedAt,
	}
}

func toResponseList(msgs []*chat.Message) []messageResponse {
	resp := make([]messageResponse, 0, len(msgs))

	for _, m := range msgs {
		resp = append(resp, toResponse(m))
	}

	return resp
}
