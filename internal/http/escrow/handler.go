package escrow

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/http/api"
	"github.com/daesung-dev/anshim/internal/http/middleware"
)

type Handler struct {
	svc *escrow.Service
}

func NewHandler(svc *escrow.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
}

// ItemRoutes are mounted under /escrows/{id}, shared with the chat and
// dispute handlers.
func (h *Handler) ItemRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Post("/fund", h.fund)
	r.Post("/start", h.start)
	r.Post("/release", h.release)
	r.Post("/cancel", h.cancel)
}

// MilestoneRoutes are mounted separately because milestones are addressed
// by their own id, not through the owning escrow.
func (h *Handler) MilestoneRoutes(r chi.Router) {
	r.Patch("/{id}/begin", h.beginMilestone)
	r.Patch("/{id}/submit", h.submitMilestone)
	r.Patch("/{id}/approve", h.approveMilestone)
	r.Patch("/{id}/reject", h.rejectMilestone)
	r.Patch("/{id}/resubmit", h.resubmitMilestone)
}

type createMilestoneRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	Percentage  int        `json:"percentage"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type createEscrowRequest struct {
	PartnerID   uuid.UUID                `json:"partner_id"`
	TotalAmount int64                    `json:"total_amount"`
	Milestones  []createMilestoneRequest `json:"milestones"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "malformed request body"})
		return
	}

	params := escrow.CreateParams{
		CustomerID:  middleware.Actor(r.Context()),
		PartnerID:   req.PartnerID,
		TotalAmount: req.TotalAmount,
	}

	for _, m := range req.Milestones {
		params.Milestones = append(params.Milestones, escrow.MilestoneParams{
			Name:        m.Name,
			Description: m.Description,
			Amount:      m.Amount,
			Percentage:  m.Percentage,
			DueDate:     m.DueDate,
		})
	}

	t, err := h.svc.Create(r.Context(), params)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r.Context())
	filter := escrow.ListFilter{PartyID: &actor}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(escrow.Status(s))
	}

	ts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponseList(ts))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	if !t.Party(middleware.Actor(r.Context())) {
		api.WriteError(w, escrow.ErrNotFound)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(t))
}

// transactionAction parses the escrow id and runs one service call with the
// authenticated actor.
func (h *Handler) transactionAction(w http.ResponseWriter, r *http.Request, fn func(txID, actorID uuid.UUID) (*escrow.Transaction, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	t, err := fn(id, middleware.Actor(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) fund(w http.ResponseWriter, r *http.Request) {
	h.transactionAction(w, r, func(txID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.Fund(r.Context(), txID, actorID)
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.transactionAction(w, r, func(txID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.Start(r.Context(), txID, actorID)
	})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.transactionAction(w, r, func(txID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.Release(r.Context(), txID, actorID)
	})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transactionAction(w, r, func(txID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.Cancel(r.Context(), txID, actorID)
	})
}

// milestoneAction mirrors transactionAction for milestone-addressed routes.
func (h *Handler) milestoneAction(w http.ResponseWriter, r *http.Request, fn func(milestoneID, actorID uuid.UUID) (*escrow.Transaction, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid milestone id"})
		return
	}

	t, err := fn(id, middleware.Actor(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) beginMilestone(w http.ResponseWriter, r *http.Request) {
	h.milestoneAction(w, r, func(milestoneID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.BeginMilestone(r.Context(), milestoneID, actorID)
	})
}

type submitMilestoneRequest struct {
	Proof string `json:"proof"`
}

func (h *Handler) submitMilestone(w http.ResponseWriter, r *http.Request) {
	var req submitMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "malformed request body"})
		return
	}

	h.milestoneAction(w, r, func(milestoneID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.SubmitMilestone(r.Context(), milestoneID, actorID, req.Proof)
	})
}

func (h *Handler) approveMilestone(w http.ResponseWriter, r *http.Request) {
	h.milestoneAction(w, r, func(milestoneID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.ApproveMilestone(r.Context(), milestoneID, actorID)
	})
}

type rejectMilestoneRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectMilestone(w http.ResponseWriter, r *http.Request) {
	var req rejectMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "malformed request body"})
		return
	}

	h.milestoneAction(w, r, func(milestoneID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.RejectMilestone(r.Context(), milestoneID, actorID, req.Reason)
	})
}

func (h *Handler) resubmitMilestone(w http.ResponseWriter, r *http.Request) {
	h.milestoneAction(w, r, func(milestoneID, actorID uuid.UUID) (*escrow.Transaction, error) {
		return h.svc.ResubmitMilestone(r.Context(), milestoneID, actorID)
	})
}
