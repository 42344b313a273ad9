package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewRedisClient(zerolog.Nop(), &redis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func sampleSnapshot() *models.Snapshot {
	platform := "4"
	return &models.Snapshot{
		Station:     "PAD",
		StationName: "London Paddington",
		Services: []models.TrainService{
			{ServiceID: "A", Destination: "Oxford", DestinationCRS: "OXF", ScheduledTime: "09:15", ExpectedTime: "On time", Platform: &platform},
		},
		Watched: []models.WatchResult{
			{Spec: models.WatchSpec{ScheduledTime: "09:45"}},
		},
		LastUpdated: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
		Available:   true,
	}
}

func TestRedisClientSaveLoad(t *testing.T) {
	rc, mr := setupRedisClient(t)
	ctx := context.Background()

	_, err := rc.Load(ctx, "PAD")
	assert.Error(t, err, "miss before the first save")

	snapshot := sampleSnapshot()
	require.NoError(t, rc.Save(ctx, snapshot))

	assert.True(t, mr.Exists("board:PAD"))
	assert.Equal(t, DefaultExpiration, mr.TTL("board:PAD"))

	loaded, err := rc.Load(ctx, "pad")
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	mr.FastForward(DefaultExpiration + time.Second)
	_, err = rc.Load(ctx, "PAD")
	assert.Error(t, err, "snapshot expires")
}

func TestRedisClientLoadCorrupt(t *testing.T) {
	rc, mr := setupRedisClient(t)
	require.NoError(t, mr.Set("board:PAD", "{not json"))

	_, err := rc.Load(context.Background(), "PAD")
	assert.ErrorContains(t, err, "failed to unmarshal snapshot board:PAD")
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(zerolog.Nop(), &redis.Options{Addr: addr, MaxRetries: -1})
	assert.Error(t, err)
}

func TestRedisClientPublish(t *testing.T) {
	rc, _ := setupRedisClient(t)
	ctx := context.Background()

	sub := rc.Client.Subscribe(ctx, Channel("pad"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	events := Diff("PAD", nil, sampleSnapshot().Services)
	require.NoError(t, rc.Publish(ctx, events))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "departures:PAD", msg.Channel)

	var event ServiceEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, TagNew, event.Tag)
	assert.Equal(t, "A", event.ServiceID)
	require.NotNil(t, event.Service)
	assert.Equal(t, "Oxford", event.Service.Destination)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "pad")
	assert.EqualError(t, err, "no snapshot for PAD")

	snapshot := sampleSnapshot()
	require.NoError(t, store.Save(ctx, snapshot))

	loaded, err := store.Load(ctx, "pad")
	require.NoError(t, err)
	assert.Same(t, snapshot, loaded)

	replacement := sampleSnapshot()
	replacement.Available = false
	require.NoError(t, store.Save(ctx, replacement))

	loaded, err = store.Load(ctx, "PAD")
	require.NoError(t, err)
	assert.False(t, loaded.Available)
	assert.True(t, snapshot.Available, "saved snapshots are replaced, not mutated")
}
