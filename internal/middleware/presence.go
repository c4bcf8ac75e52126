package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/realtime"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
	"go.uber.org/zap"
)

type PresenceMarker interface {
	MarkOnline(ctx context.Context, user models.User) ([]string, error)
}

type Presence struct {
	tracker   PresenceMarker
	limiter   repositories.PresenceWriteLimiter
	publisher realtime.Publisher
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPresence builds the presence middleware. publisher may be nil.
func NewPresence(
	tracker PresenceMarker,
	limiter repositories.PresenceWriteLimiter,
	publisher realtime.Publisher,
	interval time.Duration,
	timeout time.Duration,
	logger *zap.Logger,
) *Presence {
	if timeout <= 0 {
		timeout = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presence{
		tracker:   tracker,
		limiter:   limiter,
		publisher: publisher,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Handler refreshes presence for authenticated requests once the wrapped
// handler has run, at most once per interval per session. Presence failures
// never reach the response.
func (p *Presence) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			return
		}
		p.touch(r.Context(), models.User{ID: claims.UserID, Username: claims.Username}, claims.SessionID)
	})
}

func (p *Presence) touch(ctx context.Context, user models.User, sessionID string) {
	if sessionID == "" {
		sessionID = "user:" + strconv.FormatInt(user.ID, 10)
	}

	allowed, err := p.limiter.Allow(ctx, sessionID, p.interval)
	if err != nil {
		p.logger.Debug("presence limiter unavailable", zap.Error(err))
		return
	}
	if !allowed {
		return
	}

	users, err := p.tracker.MarkOnline(ctx, user)
	if err != nil {
		p.logger.Debug("presence update failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}

	if p.publisher == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ev := models.NewEvent(models.EventOnlineUsers, map[string]any{"users": users})
	if err := p.publisher.Publish(pushCtx, realtime.SiteGroup, ev); err != nil {
		p.logger.Debug("presence broadcast dropped", zap.Error(err))
	}
}
