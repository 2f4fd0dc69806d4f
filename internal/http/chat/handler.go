package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/chat"
	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/http/api"
	"github.com/daesung-dev/anshim/internal/http/middleware"
)

type Handler struct {
	svc *chat.Service
}

func NewHandler(svc *chat.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes are mounted under /escrows/{id}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/messages", h.list)
	r.Post("/messages", h.send)
	r.Post("/messages/read", h.markRead)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	Message        messageResponse `json:"message"`
	WarningMessage string          `json:"warning_message,omitempty"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "malformed request body"})
		return
	}

	m, redacted, err := h.svc.Send(r.Context(), txID, middleware.Actor(r.Context()), req.Content)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	resp := sendMessageResponse{Message: toResponse(m)}
	if redacted {
		resp.WarningMessage = "Contact information was detected and redacted from your message."
	}

	api.WriteJSON(w, http.StatusCreated, resp)
}

type listMessagesResponse struct {
	Messages    []messageResponse `json:"messages"`
	UnreadCount int               `json:"unread_count"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	msgs, unread, err := h.svc.ListFor(r.Context(), txID, middleware.Actor(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, listMessagesResponse{Messages: toResponseList(msgs), UnreadCount: unread})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "invalid escrow id"})
		return
	}

	if err := h.svc.MarkRead(r.Context(), txID, middleware.Actor(r.Context())); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
