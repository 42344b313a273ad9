package dashboard

import (
	"context"

	"github.com/patpending/traintimes/cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChangeEventsPattern matches the change channel of every board.
var ChangeEventsPattern = cache.Channel("*")

type RedisSubscriber struct {
	Client *redis.Client
	logger zerolog.Logger
}

func NewRedisSubscriber(logger zerolog.Logger, client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{
		Client: client,
		logger: logger.With().Str("component", "redis-subscriber").Logger(),
	}
}

//===========================================
// Subscribing logic
//===========================================

// Relay forwards every message published on channels matching pattern to the SSE hub as a
// "service" event. It returns once the subscription is confirmed and relays until ctx is done.
func (rs *RedisSubscriber) Relay(ctx context.Context, pattern string, es *EventServer) error {
	pubsub := rs.Client.PSubscribe(ctx, pattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	ch := pubsub.Channel() // Get the Go channel for messages
	rs.logger.Info().Str("pattern", pattern).Msg("subscribed on channel")

	go func() {
		defer pubsub.Close()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				rs.logger.Debug().Str("channel", msg.Channel).Msg("received message")
				// Forward the Redis message to the SSE broadcast channel
				if !es.Broadcast(Message{Event: "service", Data: []byte(msg.Payload)}) {
					return
				}
			case <-ctx.Done():
				rs.logger.Info().Msg("context done, stopping redis subscriber")
				return
			}
		}
	}()
	return nil
}
