package handlers

import (
	"context"
	"net/http"
	"time"

	mw "github.com/BASTARDsol/Mafia2Forum/internal/middleware"
	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/realtime"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NotificationsSocket streams the caller's notifications group, starting with
// the current header counters.
func (h *Handler) NotificationsSocket(w http.ResponseWriter, r *http.Request) {
	claims, _ := mw.ClaimsFromContext(r.Context())

	var initial *models.Event
	if counters, err := h.notifications.HeaderCounters(r.Context(), claims.UserID); err == nil {
		ev := models.NewEvent(models.EventHeaderCounters, counters)
		initial = &ev
	}
	h.serveSocket(w, r, realtime.NotificationsGroup(claims.UserID), initial)
}

// SiteSocket streams site-wide events such as the online users list.
func (h *Handler) SiteSocket(w http.ResponseWriter, r *http.Request) {
	var initial *models.Event
	if users, err := h.presence.OnlineUsernames(r.Context()); err == nil {
		ev := models.NewEvent(models.EventOnlineUsers, map[string]any{"users": users})
		initial = &ev
	}
	h.serveSocket(w, r, realtime.SiteGroup, initial)
}

func (h *Handler) serveSocket(w http.ResponseWriter, r *http.Request, group string, initial *models.Event) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("group", group), zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe(group)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Inbound frames are ignored; reading keeps pongs flowing and detects close.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if initial != nil {
		if err := writeEvent(conn, *initial); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				h.logger.Debug("websocket write failed", zap.String("group", group), zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev models.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
