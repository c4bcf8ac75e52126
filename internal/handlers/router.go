package handlers

import (
	"net/http"

	mw "github.com/BASTARDsol/Mafia2Forum/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Auth         mw.TokenVerifier
	Presence     *mw.Presence
	ServiceToken string
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	withPresence := func(r chi.Router) {
		if cfg.Presence != nil {
			r.Use(cfg.Presence.Handler)
		}
	}

	router.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.Auth, false))
		withPresence(r)
		r.Get("/api/online-users", h.OnlineUsers)
	})

	router.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.Auth, true))
		withPresence(r)
		r.Get("/api/notifications", h.ListNotifications)
		r.Get("/api/notifications/counters", h.HeaderCounters)
		r.Post("/api/notifications/read-all", h.MarkAllRead)
		r.Post("/api/topics/{topicID}/subscription", h.ToggleSubscription)
		r.Post("/api/dialogs/{dialogID}/read", h.MarkDialogRead)
	})

	router.Group(func(r chi.Router) {
		r.Use(mw.RequireServiceToken(cfg.ServiceToken))
		r.Post("/internal/events", h.ContentEvent)
	})

	router.With(mw.Authenticate(cfg.Auth, true)).Get("/ws/notifications", h.NotificationsSocket)
	router.With(mw.Authenticate(cfg.Auth, false)).Get("/ws/site", h.SiteSocket)

	return router
}
