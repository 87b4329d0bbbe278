package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/nmoralesdev/storefront-backend/pkg/logger"
	redisclient "github.com/nmoralesdev/storefront-backend/pkg/redis"
)

// Store persists cart snapshots between requests.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) ([]Line, error)
	Save(ctx context.Context, userID uuid.UUID, lines []Line) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type snapshot struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

const snapshotVersion = 1

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(userID string) string
}

// RedisStore keeps each user's cart as a JSON snapshot under a namespaced key.
// A snapshot that fails to decode is treated as an empty cart and logged; it
// is never surfaced to the caller.
type RedisStore struct {
	store kvStore
	keyer cartKeyer
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRedisStore builds a cart store backed by Redis.
func NewRedisStore(client *redisclient.Client, ttl time.Duration, logg *logger.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &RedisStore{store: client, keyer: client, ttl: ttl, logg: logg}, nil
}

// Load returns the stored lines, or nil when no cart exists. Corrupt payloads
// are discarded so the user starts from an empty cart.
func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	raw, err := s.store.Get(ctx, s.keyer.CartKey(userID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithUserID(ctx, userID.String())
			s.logg.Warn(logCtx, "discarding corrupt cart snapshot")
		}
		_ = s.store.Del(ctx, s.keyer.CartKey(userID.String()))
		return nil, nil
	}
	return snap.Lines, nil
}

// Save writes the lines as a fresh snapshot, resetting the TTL.
func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, lines []Line) error {
	payload, err := json.Marshal(snapshot{Version: snapshotVersion, Lines: lines})
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := s.store.Set(ctx, s.keyer.CartKey(userID.String()), string(payload), s.ttl); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// Delete removes the user's cart snapshot.
func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Del(ctx, s.keyer.CartKey(userID.String())); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}
