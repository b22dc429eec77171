// Package httpapi wires the looprender HTTP surface.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"looprender/internal/httpapi/handlers"
	"looprender/internal/pkg/logger"
	"looprender/internal/pkg/middleware"
)

// Options configures the router.
type Options struct {
	// APIToken is the bearer secret; empty fails closed on guarded routes.
	APIToken string
	// SignRequireAuth also puts /v1/sign behind the bearer secret.
	SignRequireAuth bool
}

// NewRouter assembles middleware and routes.
func NewRouter(log *logger.Logger, h *handlers.Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	r.Get("/healthz", h.Health)

	auth := middleware.BearerAuth(opts.APIToken, log)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/jobs", h.SubmitJob)
			r.Get("/jobs/{jobID}", h.GetJob)
		})

		r.Group(func(r chi.Router) {
			if opts.SignRequireAuth {
				r.Use(auth)
			}
			r.Post("/sign", h.Sign)
		})
	})

	return r
}
