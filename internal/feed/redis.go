package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier is a Notifier backed by Redis pub/sub, so every API instance
// sharing the Redis server sees writes made through any other instance.
type RedisNotifier struct {
	client  *redis.Client
	channel func(uuid.UUID) string
}

// NewRedisNotifier wraps an existing client and signals itinerary changes on
// Channel. The caller owns the client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return NewRedisNotifierOn(client, Channel)
}

// NewRedisNotifierOn is NewRedisNotifier with a custom channel naming, for
// signals keyed by something other than an owner.
func NewRedisNotifierOn(client *redis.Client, channel func(uuid.UUID) string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Channel returns the pub/sub channel name for ownerID.
func Channel(ownerID uuid.UUID) string {
	return "owners:" + ownerID.String() + ":itineraries"
}

// RevocationChannel returns the pub/sub channel name announcing that the
// session token with id jti was revoked.
func RevocationChannel(jti uuid.UUID) string {
	return "tokens:" + jti.String() + ":revoked"
}

// Notify publishes one signal for id.
func (n *RedisNotifier) Notify(ctx context.Context, id uuid.UUID) error {
	if err := n.client.Publish(ctx, n.channel(id), "changed").Err(); err != nil {
		return fmt.Errorf("feed.RedisNotifier.Notify: %w", err)
	}
	return nil
}

// Listen subscribes to id's channel. It returns only after Redis has
// confirmed the subscription, so a Notify issued afterwards is never missed.
func (n *RedisNotifier) Listen(ctx context.Context, id uuid.UUID) (<-chan struct{}, func(), error) {
	ps := n.client.Subscribe(ctx, n.channel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("feed.RedisNotifier.Listen: %w", err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	msgs := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, stop, nil
}
