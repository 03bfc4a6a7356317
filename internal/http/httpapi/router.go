package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/GCUGrayArea/delicious-lotus/internal/http/handlers"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/middleware"
)

type Options struct {
	Logger          infra.Logger
	RateLimitPerMin int
	WebhookSecret   string
	AllowedOrigins  []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.With(middleware.WebhookSignature(opts.WebhookSecret, time.Now)).
			Post("/webhooks/replicate", app.ReplicateWebhook)

		r.Get("/jobs/{job_id}", app.JobStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.UserID, middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Post("/jobs", app.SubmitJob)
			r.Post("/clips", app.DispatchClips)
		})

		r.Route("/generations", func(r chi.Router) {
			r.Use(middleware.UserID)
			r.Get("/", app.ListGenerations)
			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/", app.CreateGeneration)
			r.Get("/{generation_id}", app.GetGeneration)
		})
	})

	return r
}
