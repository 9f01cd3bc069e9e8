package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis persists values as plain keys and signals changes over Redis pub/sub.
// When a NATS connection is supplied the same change events are mirrored on a
// NATS subject so nodes behind separate Redis instances still observe them.
// Delivery is at-least-once: a subscriber may be told twice about one write.
type Redis struct {
	client *redis.Client
	nats   *nats.Conn
	nodeID string
	logger zerolog.Logger
}

type changeEvent struct {
	Source string    `json:"source"`
	Key    string    `json:"key"`
	SentAt time.Time `json:"sent_at"`
}

// NewRedis constructs a Redis-backed store. natsConn may be nil.
func NewRedis(client *redis.Client, natsConn *nats.Conn, logger zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		nats:   natsConn,
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "redis_store").Logger(),
	}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return err
	}
	r.publishChange(ctx, key)
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return err
	}
	r.publishChange(ctx, key)
	return nil
}

// Subscribe implements Store. The callback runs on the subscription
// goroutine; it must not block for long.
func (r *Redis) Subscribe(ctx context.Context, key string, fn func()) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	pubsub := r.client.Subscribe(subCtx, eventChannel(key))
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	go r.consumeRedis(subCtx, pubsub, fn)

	var natsSub *nats.Subscription
	if r.nats != nil {
		sub, err := r.nats.Subscribe(eventSubject(key), func(msg *nats.Msg) {
			var event changeEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				r.logger.Warn().Err(err).Msg("invalid store change event")
				return
			}
			if event.Source == r.nodeID {
				return
			}
			fn()
		})
		if err != nil {
			r.logger.Error().Err(err).Str("key", key).Msg("failed to subscribe to nats change subject")
		} else {
			natsSub = sub
		}
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				r.logger.Debug().Err(err).Msg("failed to close redis subscription")
			}
			if natsSub != nil {
				if err := natsSub.Drain(); err != nil {
					r.logger.Debug().Err(err).Msg("failed to drain nats subscription")
				}
			}
		})
	}

	return unsubscribe, nil
}

func (r *Redis) consumeRedis(ctx context.Context, pubsub *redis.PubSub, fn func()) {
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			r.logger.Error().Err(err).Msg("store redis subscription closed")
			return
		}
		_ = msg
		fn()
	}
}

// publishChange is fire-and-forget: a lost signal only delays refresh until
// the next change.
func (r *Redis) publishChange(ctx context.Context, key string) {
	event := changeEvent{Source: r.nodeID, Key: key, SentAt: time.Now().UTC()}
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to marshal store change event")
		return
	}

	if err := r.client.Publish(ctx, eventChannel(key), payload).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to publish store change to redis")
	}

	if r.nats != nil {
		if err := r.nats.Publish(eventSubject(key), payload); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to publish store change to nats")
		}
	}
}

func eventChannel(key string) string {
	return key + ":events"
}

func eventSubject(key string) string {
	return strings.ReplaceAll(key, ":", ".") + ".events"
}
