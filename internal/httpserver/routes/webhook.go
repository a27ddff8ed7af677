package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/stash-sh/stash/internal/httpserver/deps"
	"github.com/stash-sh/stash/internal/httpserver/handlers"
	"github.com/stash-sh/stash/internal/httpserver/mw"
)

func init() { Register(registerWebhook) }

func registerWebhook(r chi.Router, d deps.Deps) {
	r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateLimitBurst,
			RefillPerIPPerMin: d.RateLimitRefill,
			TrustProxy:        d.TrustProxy,
		}),
	).Post("/webhook/{secret}", handlers.Webhook(d))
}
