package dispute

import (
	"time"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/dispute"
	"github.com/daesung-dev/anshim/internal/escrow"
)

type disputeResponse struct {
	ID            uuid.UUID          `json:"id"`
	TransactionID uuid.UUID          `json:"transaction_id"`
	RaisedBy      uuid.UUID          `json:"raised_by"`
	Reason        dispute.Reason     `json:"reason"`
	Description   string             `json:"description"`
	Outcome       *escrow.Resolution `json:"outcome,omitempty"`
	ResolverID    *uuid.UUID         `json:"resolver_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
}

func toResponse(d *dispute.Dispute) disputeResponse {
	return disputeResponse{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		RaisedBy:      d.RaisedBy,
		Reason:        d.Reason,
		Description:   d.Description,
		Outcome:       d.Outcome,
		ResolverID:    d.ResolverID,
		CreatedAt:     d.CreatedAt,
		ResolvedAt:    d.ResolvedAt,
	}
}

func toResponseList(ds []*dispute.Dispute) []disputeResponse {
	resp := make([]disputeResponse, 0, len(ds))

	for _, d := range ds {
		resp = append(resp, toResponse(d))
	}

	return resp
}
