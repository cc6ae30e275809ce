package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"promo-wizard/internal/auth"
	"promo-wizard/internal/observability"
	"promo-wizard/internal/wizard"
)

const requestTimeout = 30 * time.Second

func Router(h *Handler, policy auth.Policy, res auth.Resolver) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(policy, res))

		r.Route("/api", func(r chi.Router) {
			r.Use(h.session)
			r.Use(h.tokens)

			r.Post("/session/activity", h.Activity)

			r.Route("/wizard", func(r chi.Router) {
				r.Get("/draft", h.GetDraft)
				r.Delete("/draft", h.Abandon)
				r.Get("/steps", h.Steps)
				r.Post("/edit/{promoID}", h.Edit)

				r.Post("/steps/basic", h.SubmitBasic)
				r.Post("/steps/audience", submit(h, (*wizard.Service).SubmitAudience))
				r.Post("/steps/rules", submit(h, (*wizard.Service).SubmitRules))
				r.Post("/steps/incentives", submit(h, (*wizard.Service).SubmitIncentives))
				r.Post("/steps/partner-rules", submit(h, (*wizard.Service).SubmitPartnerRules))
				r.Post("/steps/rewards", submit(h, (*wizard.Service).SubmitRewards))
				r.Post("/finish", h.Finish)

				r.Get("/audience/countries", h.Countries)
				r.Post("/audience/edit", h.EditAudience)
				r.Post("/audience/options", h.AudienceOptions)
				r.Post("/rewards/statuses", h.RewardStatuses)
			})
		})

		// Page gate for the front proxy: 204 when the caller may see the
		// page, otherwise the middleware has already redirected.
		r.Get("/*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}
