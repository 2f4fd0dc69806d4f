package reconcile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/http/api"
	"github.com/daesung-dev/anshim/internal/reconcile"
)

type Handler struct {
	svc *reconcile.Service
}

func NewHandler(svc *reconcile.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes are mounted behind the admin gate.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/settlements", h.importSettlements)
}

type importResponse struct {
	Rows     int      `json:"rows"`
	Replayed int      `json:"replayed"`
	Skipped  int      `json:"skipped"`
	Unknown  []string `json:"unknown,omitempty"`
}

func (h *Handler) importSettlements(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "failed to parse form: " + err.Error()})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		api.WriteError(w, &escrow.ValidationError{Reason: "file field is required"})
		return
	}
	defer file.Close()

	res, err := h.svc.Import(r.Context(), file)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, importResponse{
		Rows:     res.Rows,
		Replayed: res.Replayed,
		Skipped:  res.Skipped,
		Unknown:  res.Unknown,
	})
}
