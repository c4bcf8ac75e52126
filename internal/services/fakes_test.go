package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
)

type memPresenceStore struct {
	entries map[int64]models.PresenceEntry
	lastTTL time.Duration
	saves   int
	loadErr error
	saveErr error
}

func newMemPresenceStore() *memPresenceStore {
	return &memPresenceStore{entries: make(map[int64]models.PresenceEntry)}
}

func (s *memPresenceStore) Load(_ context.Context) (map[int64]models.PresenceEntry, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[int64]models.PresenceEntry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e
	}
	return out, nil
}

func (s *memPresenceStore) Save(_ context.Context, entries map[int64]models.PresenceEntry, ttl time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries = entries
	s.lastTTL = ttl
	s.saves++
	return nil
}

type memUsers struct {
	users map[int64]*models.User
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{users: make(map[int64]*models.User)}
	for _, u := range users {
		u := u
		m.users[u.ID] = &u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByUsernames(_ context.Context, usernames []string) ([]*models.User, error) {
	var out []*models.User
	for _, name := range usernames {
		for _, u := range m.users {
			if u.Username == name {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type memTopics struct {
	topics map[int64]*models.Topic
}

func newMemTopics(topics ...models.Topic) *memTopics {
	m := &memTopics{topics: make(map[int64]*models.Topic)}
	for _, t := range topics {
		t := t
		m.topics[t.ID] = &t
	}
	return m
}

func (m *memTopics) GetByID(_ context.Context, id int64) (*models.Topic, error) {
	t, ok := m.topics[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return t, nil
}

type memNotifications struct {
	mu        sync.Mutex
	items     []*models.Notification
	nextID    int64
	createErr error
}

func (m *memNotifications) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = time.Now()
	m.items = append(m.items, n)
	return nil
}

func (m *memNotifications) ListByRecipient(_ context.Context, recipientID int64, limit, offset int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].RecipientID == recipientID {
			out = append(out, m.items[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) CountUnread(_ context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.RecipientID == recipientID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.RecipientID == recipientID && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) forRecipient(recipientID int64) []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, item := range m.items {
		if item.RecipientID == recipientID {
			out = append(out, item)
		}
	}
	return out
}

type memSubscriptions struct {
	subs map[[2]int64]bool
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{subs: make(map[[2]int64]bool)}
}

func (m *memSubscriptions) Subscribe(_ context.Context, userID, topicID int64) error {
	m.subs[[2]int64{userID, topicID}] = true
	return nil
}

func (m *memSubscriptions) Unsubscribe(_ context.Context, userID, topicID int64) error {
	key := [2]int64{userID, topicID}
	if !m.subs[key] {
		return repositories.ErrNotFound
	}
	delete(m.subs, key)
	return nil
}

func (m *memSubscriptions) Exists(_ context.Context, userID, topicID int64) (bool, error) {
	return m.subs[[2]int64{userID, topicID}], nil
}

func (m *memSubscriptions) ListSubscriberIDs(_ context.Context, topicID, excludeUserID int64) ([]int64, error) {
	var ids []int64
	for key := range m.subs {
		if key[1] == topicID && key[0] != excludeUserID {
			ids = append(ids, key[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memMessages struct {
	unread map[int64]int64
	err    error
}

func (m *memMessages) CountUnread(_ context.Context, userID int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.unread[userID], nil
}

func (m *memMessages) MarkDialogRead(_ context.Context, _, userID int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := m.unread[userID]
	m.unread[userID] = 0
	return n, nil
}

type published struct {
	group string
	event models.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	block  bool
}

func (p *recordingPublisher) Publish(ctx context.Context, group string, ev models.Event) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{group: group, event: ev})
	return nil
}

func (p *recordingPublisher) published() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type fixture struct {
	users         *memUsers
	topics        *memTopics
	notifications *memNotifications
	subscriptions *memSubscriptions
	messages      *memMessages
	publisher     *recordingPublisher
	notifier      *NotificationService
	content       *ContentService
}

func newFixture() *fixture {
	f := &fixture{
		users: newMemUsers(
			models.User{ID: 1, Username: "alice"},
			models.User{ID: 2, Username: "bob"},
			models.User{ID: 3, Username: "carol"},
		),
		topics:        newMemTopics(models.Topic{ID: 10, AuthorID: 1, Title: "Heists"}),
		notifications: &memNotifications{},
		subscriptions: newMemSubscriptions(),
		messages:      &memMessages{unread: make(map[int64]int64)},
		publisher:     &recordingPublisher{},
	}
	f.notifier = NewNotificationService(f.notifications, f.subscriptions, f.messages, f.users, f.publisher, time.Second, nil)
	f.content = NewContentService(f.topics, f.users, f.subscriptions, f.notifier)
	return f
}
