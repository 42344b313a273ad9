package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultExpiration = 90 * time.Minute

// Store keeps the last snapshot of each board so the dashboard and a restarted poller can
// serve last-known-good data.
type Store interface {
	Save(ctx context.Context, snapshot *models.Snapshot) error
	Load(ctx context.Context, station string) (*models.Snapshot, error)
}

func SnapshotKey(station string) string {
	return fmt.Sprintf("board:%s", strings.ToUpper(station))
}

//-------------------------------------
// In-process store
//-------------------------------------

type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*models.Snapshot)}
}

// Save replaces the stored snapshot. Snapshots are treated as immutable once saved.
func (m *MemoryStore) Save(_ context.Context, snapshot *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[SnapshotKey(snapshot.Station)] = snapshot
	return nil
}

func (m *MemoryStore) Load(_ context.Context, station string) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.snapshots[SnapshotKey(station)]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", strings.ToUpper(station))
	}
	return snapshot, nil
}

//-------------------------------------
// Redis backed store
//-------------------------------------

type RedisClient struct {
	Client *redis.Client
	Cache  *cache.Cache[string]
	logger zerolog.Logger
}

func NewRedisClient(logger zerolog.Logger, options *redis.Options) (*RedisClient, error) {
	client := redis.NewClient(options)
	logger.Info().Str("addr", options.Addr).Msg("connecting to redis...")

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to connect to Redis")
		return nil, err
	}

	logger.Info().Msg("successfully connected to Redis")
	return NewRedisClientFromClient(logger, client, DefaultExpiration), nil
}

// NewRedisClientFromClient wraps an existing connection.
func NewRedisClientFromClient(logger zerolog.Logger, client *redis.Client, expiration time.Duration) *RedisClient {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))
	return &RedisClient{
		Client: client,
		Cache:  cache.New[string](redisStore),
		logger: logger,
	}
}

func (rc *RedisClient) Save(ctx context.Context, snapshot *models.Snapshot) error {
	key := SnapshotKey(snapshot.Station)
	value, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := rc.Cache.Set(ctx, key, string(value)); err != nil {
		rc.logger.Error().Err(err).Str("key", key).Msg("failed to store snapshot")
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (rc *RedisClient) Load(ctx context.Context, station string) (*models.Snapshot, error) {
	key := SnapshotKey(station)
	value, err := rc.Cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", key, err)
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return &snapshot, nil
}

func (rc *RedisClient) Close() error {
	return rc.Client.Close()
}
