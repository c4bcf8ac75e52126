package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/redis/go-redis/v9"
)

const presenceMapKey = "online_users_presence_map"

// presenceRecord is the cached shape of one entry; ts is unix seconds.
type presenceRecord struct {
	Username string  `json:"username"`
	TS       float64 `json:"ts"`
}

type RedisPresenceStore struct {
	client *redis.Client
}

func NewRedisPresenceStore(client *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{client: client}
}

// Load returns the whole presence map. A missing or unreadable key yields an empty map.
func (r *RedisPresenceStore) Load(ctx context.Context) (map[int64]models.PresenceEntry, error) {
	entries := make(map[int64]models.PresenceEntry)

	data, err := r.client.Get(ctx, presenceMapKey).Bytes()
	if err == redis.Nil {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence map: %w", err)
	}

	var records map[string]presenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return entries, nil
	}

	for key, rec := range records {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		entries[userID] = models.PresenceEntry{
			UserID:   userID,
			Username: rec.Username,
			LastSeen: fromUnixSeconds(rec.TS),
		}
	}
	return entries, nil
}

func (r *RedisPresenceStore) Save(ctx context.Context, entries map[int64]models.PresenceEntry, ttl time.Duration) error {
	records := make(map[string]presenceRecord, len(entries))
	for userID, entry := range entries {
		records[strconv.FormatInt(userID, 10)] = presenceRecord{
			Username: entry.Username,
			TS:       float64(entry.LastSeen.UnixNano()) / float64(time.Second),
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal presence map: %w", err)
	}

	if err := r.client.Set(ctx, presenceMapKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set presence map: %w", err)
	}
	return nil
}

func fromUnixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
