package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	mw "github.com/BASTARDsol/Mafia2Forum/internal/middleware"
	"github.com/BASTARDsol/Mafia2Forum/internal/realtime"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
	"github.com/BASTARDsol/Mafia2Forum/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type OnlineLister interface {
	OnlineUsernames(ctx context.Context) ([]string, error)
}

type Handler struct {
	presence      OnlineLister
	notifications *services.NotificationService
	content       *services.ContentService
	hub           *realtime.Hub
	logger        *zap.Logger
}

func NewHandler(
	presence OnlineLister,
	notifications *services.NotificationService,
	content *services.ContentService,
	hub *realtime.Hub,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		presence:      presence,
		notifications: notifications,
		content:       content,
		hub:           hub,
		logger:        logger,
	}
}

// OnlineUsers serves the presence snapshot. Cache failures yield an empty list.
func (h *Handler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.presence.OnlineUsernames(r.Context())
	if err != nil {
		h.logger.Debug("online users unavailable", zap.Error(err))
		users = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, _ := mw.ClaimsFromContext(r.Context())

	limit := defaultPageSize
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}
	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	notifications, err := h.notifications.ListNotifications(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		h.internalError(w, "list notifications", err)
		return
	}
	if notifications == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) HeaderCounters(w http.ResponseWriter, r *http.Request) {
	claims, _ := mw.ClaimsFromContext(r.Context())

	counters, err := h.notifications.HeaderCounters(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, "header counters", err)
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := mw.ClaimsFromContext(r.Context())

	updated, err := h.notifications.MarkAllRead(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, "mark all read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *Handler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	claims, _ := mw.ClaimsFromContext(r.Context())

	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}

	subscribed, err := h.content.ToggleSubscription(r.Context(), claims.UserID, topicID)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	if err != nil {
		h.internalError(w, "toggle subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

func (h *Handler) MarkDialogRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := mw.ClaimsFromContext(r.Context())

	dialogID, ok := pathID(w, r, "dialogID")
	if !ok {
		return
	}

	updated, err := h.notifications.MarkDialogRead(r.Context(), dialogID, claims.UserID)
	if err != nil {
		h.internalError(w, "mark dialog read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// ContentEvent receives content events from the forum backend.
func (h *Handler) ContentEvent(w http.ResponseWriter, r *http.Request) {
	var ev services.ContentEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.content.Handle(r.Context(), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case errors.Is(err, services.ErrUnknownEvent), errors.Is(err, services.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.internalError(w, "content event "+ev.Type, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
