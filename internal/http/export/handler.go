package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/export"
	"github.com/daesung-dev/anshim/internal/http/api"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.statement)
}

// statement streams the accounting statement as a CSV attachment. An
// optional status query narrows it to one lifecycle state.
func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	var filter escrow.ListFilter

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(escrow.Status(s))
	}

	rows, err := h.svc.Statement(r.Context(), filter)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"statement_%s.csv\"", time.Now().Format("20060102")))

	if err := export.WriteCSV(w, rows); err != nil {
		// Headers are gone; all we can do is log.
		slog.Error("failed to stream statement", "error", err)
	}
}
