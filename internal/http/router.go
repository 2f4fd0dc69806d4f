package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	chathandler "github.com/daesung-dev/anshim/internal/http/chat"
	disputehandler "github.com/daesung-dev/anshim/internal/http/dispute"
	escrowhandler "github.com/daesung-dev/anshim/internal/http/escrow"
	exporthandler "github.com/daesung-dev/anshim/internal/http/export"
	authmw "github.com/daesung-dev/anshim/internal/http/middleware"
	reconcilehandler "github.com/daesung-dev/anshim/internal/http/reconcile"
)

func New(
	jwtSecret string,
	escrowsV1 *escrowhandler.Handler,
	chatV1 *chathandler.Handler,
	disputesV1 *disputehandler.Handler,
	reconcileV1 *reconcilehandler.Handler,
	exportV1 *exporthandler.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.Authenticator(jwtSecret))

		r.Route("/escrows", func(r chi.Router) {
			// Milestones are addressed by their own id, so they get their
			// own subtree instead of nesting under /{id}.
			r.Route("/milestones", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				escrowsV1.MilestoneRoutes(r)
			})

			escrowsV1.Routes(r)

			r.Route("/{id}", func(r chi.Router) {
				escrowsV1.ItemRoutes(r)
				chatV1.Routes(r)
				disputesV1.Routes(r)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.RequireAdmin)

			disputesV1.AdminRoutes(r)

			r.Route("/reconcile", reconcileV1.Routes)
			r.Route("/statements", exportV1.Routes)
		})
	})

	return router
}
