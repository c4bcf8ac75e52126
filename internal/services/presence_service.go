package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
)

const (
	DefaultPresenceWindow = 5 * time.Minute
	MaxOnlineUsernames    = 25
)

// PresenceTracker answers "who is online" from a self-expiring map kept in a
// shared cache. Expired entries are dropped on every read and write, so no
// background sweeper is needed. Concurrent writers race; last write wins.
type PresenceTracker struct {
	store  repositories.PresenceStore
	window time.Duration
	now    func() time.Time
}

func NewPresenceTracker(store repositories.PresenceStore, window time.Duration) *PresenceTracker {
	if window <= 0 {
		window = DefaultPresenceWindow
	}
	return &PresenceTracker{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// MarkOnline refreshes the user's entry and returns the current snapshot.
func (t *PresenceTracker) MarkOnline(ctx context.Context, user models.User) ([]string, error) {
	now := t.now()

	entries, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load presence: %w", err)
	}

	entries = t.cleanup(entries, now)
	entries[user.ID] = models.PresenceEntry{
		UserID:   user.ID,
		Username: user.Username,
		LastSeen: now,
	}

	if err := t.store.Save(ctx, entries, t.window); err != nil {
		return nil, fmt.Errorf("failed to save presence: %w", err)
	}
	return snapshot(entries), nil
}

// OnlineUsernames returns the snapshot without touching any entry. The cleaned
// map is written back so expired entries do not linger once writes stop.
func (t *PresenceTracker) OnlineUsernames(ctx context.Context) ([]string, error) {
	entries, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load presence: %w", err)
	}

	entries = t.cleanup(entries, t.now())

	if err := t.store.Save(ctx, entries, t.window); err != nil {
		return nil, fmt.Errorf("failed to save presence: %w", err)
	}
	return snapshot(entries), nil
}

func (t *PresenceTracker) cleanup(entries map[int64]models.PresenceEntry, now time.Time) map[int64]models.PresenceEntry {
	fresh := make(map[int64]models.PresenceEntry, len(entries)+1)
	for id, entry := range entries {
		if now.Sub(entry.LastSeen) <= t.window {
			fresh[id] = entry
		}
	}
	return fresh
}

// snapshot is sorted ascending and capped at MaxOnlineUsernames.
func snapshot(entries map[int64]models.PresenceEntry) []string {
	usernames := make([]string, 0, len(entries))
	for _, entry := range entries {
		usernames = append(usernames, entry.Username)
	}
	sort.Strings(usernames)

	if len(usernames) > MaxOnlineUsernames {
		usernames = usernames[:MaxOnlineUsernames]
	}
	return usernames
}
