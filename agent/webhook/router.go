package webhook

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// NewRouter mounts the webhook under /vapi and the dashboard under /api.
func NewRouter(serviceName string, logger zerolog.Logger, h *Handler, d *Dashboard) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))

	r.Get("/health", d.Health)

	r.Route("/vapi", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/customers", d.Customers)
		r.Get("/customers/{phone}", d.Customer)
		r.Get("/services", d.Services)
		r.Get("/slots", d.Slots)
		r.Get("/activity", d.Activity)
		r.Get("/calls", d.Calls)
		r.Get("/payments", d.Payments)
		r.Get("/bookings", d.Bookings)
		r.Get("/stats", d.Stats)
	})

	r.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		respondErr(r.Context(), rw, http.StatusNotFound, "Endpoint not found")
	})

	return r
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(rw, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
