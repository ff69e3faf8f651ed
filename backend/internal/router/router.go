package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/accounts/backend/internal/setup"
	mw "github.com/itchan-dev/accounts/shared/middleware"
	"github.com/itchan-dev/accounts/shared/middleware/metrics"
	rl "github.com/itchan-dev/accounts/shared/middleware/ratelimiter"
)

// New wires every route.
// IMPORTANT! a limiter passed to .Use is shared by all routes of that group
func New(deps *setup.Dependencies) *chi.Mux {
	cfg := deps.Config.Public
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeaders(cfg.HTTP.SecureCookies))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/health", h.Health)

		// Sign-up: 10 per minute by IP
		v1.Group(func(accounts chi.Router) {
			accounts.Use(mw.RateLimit(rl.PerMinute(10, time.Hour), mw.GetIP))
			accounts.Post("/accounts/validate", h.ValidateAccount)
			accounts.Post("/accounts", h.Register)
			accounts.Post("/invites/validate", h.ValidateInvite)
		})

		// Forgot password sends email: 1 per minute per identity, 5 per minute by IP
		v1.Group(func(forgot chi.Router) {
			forgot.Use(mw.RateLimit(rl.PerMinute(1, time.Hour), mw.GetFieldFromBody("identity")))
			forgot.Use(mw.RateLimit(rl.PerMinute(5, time.Hour), mw.GetIP))
			forgot.Post("/password/forgot", h.ForgotPassword)
		})

		// Code verification: 5 attempts per 10 minutes per account against brute force
		v1.Group(func(reset chi.Router) {
			reset.Use(mw.RateLimit(rl.New(5.0/600.0, 5, time.Hour), mw.GetFieldFromBody("account_id")))
			reset.Use(mw.RateLimit(rl.PerMinute(10, time.Hour), mw.GetIP))
			reset.Post("/password/reset", h.ResetPassword)
		})

		v1.Group(func(loggedIn chi.Router) {
			loggedIn.Use(authMw.NeedAuth())
			loggedIn.Use(mw.RateLimit(rl.PerMinute(5, time.Hour), mw.GetPrincipalID))
			loggedIn.Post("/invites", h.GenerateInvite)
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(authMw.AdminOnly())
			admin.Post("/accounts/{id}/ban", h.BanAccount)
			admin.Delete("/accounts/{id}/ban", h.UnbanAccount)
		})
	})

	// preflight requests outside any route
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
