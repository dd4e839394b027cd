package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/eduaccess-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware движка доступа.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/curricula", func(r chi.Router) {
				r.Post("/", h.CreateCurriculum)
				r.Get("/{curriculumID}", h.GetCurriculum)
				r.Get("/{curriculumID}/coverage", h.ProjectCoverage)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", h.CreateSubscription)
				r.Get("/{subscriptionID}", h.GetSubscription)
				r.Get("/{subscriptionID}/history", h.GetCreditHistory)
				r.Post("/{subscriptionID}/activate", h.Activate)
				r.Post("/{subscriptionID}/reject", h.Reject)
				r.Post("/{subscriptionID}/credit", h.AddCredit)
				r.Post("/{subscriptionID}/advance", h.AdvanceLevel)
				r.Post("/{subscriptionID}/renew", h.RenewCredit)
				r.Get("/{subscriptionID}/progress/level", h.LevelProgress)
				r.Get("/{subscriptionID}/progress/overall", h.OverallProgress)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", h.CreateGroup)
				r.Get("/{groupID}", h.GetGroup)
				r.Post("/{groupID}/status", h.ChangeGroupStatus)
				r.Post("/{groupID}/students", h.AssignStudent)
				r.Delete("/{groupID}/students/{studentID}", h.RemoveStudent)
				r.Post("/{groupID}/attendance", h.RecordAttendance)
			})
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
