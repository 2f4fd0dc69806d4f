package escrow

import (
	"time"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/escrow"
)

type milestoneResponse struct {
	ID               uuid.UUID              `json:"id"`
	Position         int                    `json:"position"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	Amount           int64                  `json:"amount"`
	Percentage       int                    `json:"percentage"`
	DueDate          *time.Time             `json:"due_date,omitempty"`
	Status           escrow.MilestoneStatus `json:"status"`
	ProofDescription string                 `json:"proof_description,omitempty"`
	RejectReason     string                 `json:"reject_reason,omitempty"`
	ReleasedAt       *time.Time             `json:"released_at,omitempty"`
}

type escrowResponse struct {
	ID            uuid.UUID           `json:"id"`
	Number        string              `json:"number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	PartnerID     uuid.UUID           `json:"partner_id"`
	TotalAmount   int64               `json:"total_amount"`
	PlatformFee   int64               `json:"platform_fee"`
	PartnerPayout int64               `json:"partner_payout"`
	Status        escrow.Status       `json:"status"`
	Version       int64               `json:"version"`
	Milestones    []milestoneResponse `json:"milestones"`
	CreatedAt     time.Time           `json:"created_at"`
	FundedAt      *time.Time          `json:"funded_at,omitempty"`
	ClosedAt      *time.Time          `json:"closed_at,omitempty"`
}

func toResponse(t *escrow.Transaction) escrowResponse {
	resp := escrowResponse{
		ID:            t.ID,
		Number:        t.Number,
		CustomerID:    t.CustomerID,
		PartnerID:     t.PartnerID,
		TotalAmount:   t.TotalAmount,
		PlatformFee:   t.PlatformFee,
		PartnerPayout: t.PartnerPayout,
		Status:        t.Status,
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		FundedAt:      t.FundedAt,
		ClosedAt:      t.ClosedAt,
	}

	for _, m := range t.Milestones {
		resp.Milestones = append(resp.Milestones, milestoneResponse{
			ID:               m.ID,
			Position:         m.Position,
			Name:             m.Name,
			Description:      m.Description,
			Amount:           m.Amount,
			Percentage:       m.Percentage,
			DueDate:          m.DueDate,
			Status:           m.Status,
			ProofDescription: m.ProofDescription,
			RejectReason:     m.RejectReason,
			ReleasedAt:       m.ReleasedAt,
		})
	}

	return resp
}

func toResponseList(ts []*escrow.Transaction) []escrowResponse {
	resp := make([]escrowResponse, 0, len(ts))

	for _, t := range ts {
		resp = append(resp, toResponse(t))
	}

	return resp
}
