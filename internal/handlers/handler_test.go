package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/database"
	mw "github.com/BASTARDsol/Mafia2Forum/internal/middleware"
	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/realtime"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
	"github.com/BASTARDsol/Mafia2Forum/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServiceToken = "service-secret"

type stubOnline struct {
	users []string
	err   error
}

func (s *stubOnline) OnlineUsernames(context.Context) ([]string, error) {
	return s.users, s.err
}

type testServer struct {
	router   http.Handler
	hub      *realtime.Hub
	auth     *services.AuthService
	notifier *services.NotificationService
	online   *stubOnline
}

// newTestServer wires the router over an in-memory SQLite database with users
// alice(1), bob(2), carol(3) and topic 10 authored by alice
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.MigrateSQLite(ctx, db))

	for _, stmt := range []string{
		`INSERT INTO users (id, username) VALUES (1, 'alice'), (2, 'bob'), (3, 'carol')`,
		`INSERT INTO topics (id, author_id, title) VALUES (10, 1, 'Heists')`,
		`INSERT INTO comments (id, topic_id, author_id, content) VALUES (77, 10, 3, 'hi')`,
		`INSERT INTO dialogs (id) VALUES (40)`,
		`INSERT INTO dialog_participants (dialog_id, user_id) VALUES (40, 1), (40, 2)`,
		`INSERT INTO messages (dialog_id, author_id, content) VALUES (40, 1, 'psst')`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	users := repositories.NewSQLiteUserRepository(db)
	topics := repositories.NewSQLiteTopicRepository(db)
	subscriptions := repositories.NewSQLiteSubscriptionRepository(db)

	hub := realtime.NewHub()
	notifier := services.NewNotificationService(
		repositories.NewSQLiteNotificationRepository(db),
		subscriptions,
		repositories.NewSQLiteMessageRepository(db),
		users,
		hub,
		time.Second,
		nil,
	)
	content := services.NewContentService(topics, users, subscriptions, notifier)
	auth := services.NewAuthService("test-secret")
	online := &stubOnline{users: []string{"alice", "bob"}}

	router := NewRouter(NewHandler(online, notifier, content, hub, nil), RouterConfig{
		Auth:         auth,
		ServiceToken: testServiceToken,
	})
	return &testServer{router: router, hub: hub, auth: auth, notifier: notifier, online: online}
}

func (s *testServer) token(t *testing.T, userID int64, username string) string {
	t.Helper()
	token, err := s.auth.IssueToken(services.TokenClaims{UserID: userID, Username: username, SessionID: "sess"}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

// TestOnlineUsers tests the snapshot and the empty fallback on cache failure
func TestOnlineUsers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/online-users", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users": ["alice", "bob"]}`, rec.Body.String())

	s.online.err = errors.New("cache down")
	rec = s.do(t, http.MethodGet, "/api/online-users", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users": []}`, rec.Body.String())
}

// TestNotificationsFlow tests list, counters and read-all for an authenticated user
func TestNotificationsFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	bob := s.token(t, 2, "bob")

	rec := s.do(t, http.MethodGet, "/api/notifications", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/notifications", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"notifications": []}`, rec.Body.String())

	topicID := int64(10)
	for i := 0; i < 2; i++ {
		_, err := s.notifier.NotifyLike(ctx, services.LikeNotice{ActorID: 1, RecipientID: 2, TopicID: &topicID, Message: "alice liked your topic"})
		require.NoError(t, err)
	}

	rec = s.do(t, http.MethodGet, "/api/notifications?limit=1", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, models.KindLike, list.Notifications[0].Kind)

	rec = s.do(t, http.MethodGet, "/api/notifications/counters", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_notifications_count": 2, "unread_messages_count": 1}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/notifications/read-all", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": 2}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/notifications/read-all", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": 0}`, rec.Body.String())
}

func TestListNotifications_BadPaging(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, 2, "bob")

	for _, query := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1"} {
		rec := s.do(t, http.MethodGet, "/api/notifications?"+query, bob, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

// TestToggleSubscription tests subscribe, unsubscribe and unknown topics
func TestToggleSubscription(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, 2, "bob")

	rec := s.do(t, http.MethodPost, "/api/topics/10/subscription", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscribed": true}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/topics/10/subscription", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscribed": false}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/topics/999/subscription", bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/topics/abc/subscription", bob, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkDialogRead(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, 2, "bob")

	rec := s.do(t, http.MethodPost, "/api/dialogs/40/read", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": 1}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/notifications/counters", bob, "")
	assert.JSONEq(t, `{"unread_notifications_count": 0, "unread_messages_count": 0}`, rec.Body.String())
}

// TestContentEvent tests the internal event endpoint end to end
func TestContentEvent(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, 2, "bob")

	post := func(token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
		if token != "" {
			req.Header.Set(mw.ServiceTokenHeader, token)
		}
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("", `{"type": "topic_created", "actor_id": 2, "topic_id": 10}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// bob follows the topic, then carol comments on it
	rec = post(testServiceToken, `{"type": "topic_created", "actor_id": 2, "topic_id": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events, unsubscribe := s.hub.Subscribe(realtime.NotificationsGroup(2))
	defer unsubscribe()

	rec = post(testServiceToken, `{"type": "comment_created", "actor_id": 3, "topic_id": 10, "comment_id": 77, "content": "count me in"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case ev := <-events:
		assert.Equal(t, models.EventHeaderCounters, ev.Type)
		assert.Equal(t, models.HeaderCounters{UnreadNotifications: 1, UnreadMessages: 1}, ev.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no counters push for the subscriber")
	}

	rec = s.do(t, http.MethodGet, "/api/notifications", bob, "")
	var list struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, `carol commented on "Heists"`, list.Notifications[0].Message)

	rec = post(testServiceToken, `{"type": "topic_deleted", "actor_id": 3, "topic_id": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(testServiceToken, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(testServiceToken, `{"type": "post_created", "actor_id": 3, "topic_id": 999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
