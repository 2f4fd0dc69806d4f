package dispute

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/dispute"
	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/http/api"
	"github.com/daesung-dev/anshim/internal/http/middleware"
)

type Handler struct {
	svc *dispute.Service
}

func NewHandler(svc *dispute.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes are mounted under /escrows/{id}.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/disputes", h.open)
	r.Get("/disputes", h.get)
}

// AdminRoutes expose the resolution queue. Mounted behind the admin gate.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/disputes", h.listOpen)
	r.Post("/disputes/{disputeID}/resolve", h.resolve)
}

type openDisputeRequest struct {
	Reason      dispute.Reason `json:"reason"`
	Description string         `json:"description"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	var req openDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "malformed request body"})
		return
	}

	d, err := h.svc.Open(r.Context(), txID, middleware.Actor(r.Context()), req.Reason, req.Description)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	d, err := h.svc.ByTransaction(r.Context(), txID)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.ListOpen(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponseList(ds))
}

type resolveDisputeRequest struct {
	Outcome escrow.Resolution `json:"outcome"`
}

type resolveDisputeResponse struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	Status        escrow.Status `json:"status"`
	ResolvedAt    time.Time     `json:"resolved_at"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	disputeID, err := uuid.Parse(chi.URLParam(r, "disputeID"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid dispute id"})
		return
	}

	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "malformed request body"})
		return
	}

	t, err := h.svc.Resolve(r.Context(), disputeID, middleware.Actor(r.Context()), req.Outcome)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, resolveDisputeResponse{
		TransactionID: t.ID,
		Status:        t.Status,
		ResolvedAt:    time.Now(),
	})
}
