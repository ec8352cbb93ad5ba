package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"comanda/internal/events"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	publishTimeout = 2 * time.Second
	minRetryDelay  = time.Second
	maxRetryDelay  = 30 * time.Second
)

// ErrRelayDown is reported by Check while the bridge is not subscribed.
var ErrRelayDown = errors.New("redis relay is not subscribed")

// RedisClient is the part of *redis.Client the bridge uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisBridge shares events between replicas through a Redis channel.
// Events published on any replica reach the local hub of every replica
// running Run.
type RedisBridge struct {
	client     RedisClient
	channel    string
	hub        *Hub
	subscribed atomic.Bool
	minRetry   time.Duration
	maxRetry   time.Duration
	log        logrus.FieldLogger
}

// NewRedisBridge creates a bridge relaying channel into hub.
func NewRedisBridge(client RedisClient, channel string, hub *Hub, logger logrus.FieldLogger) *RedisBridge {
	return &RedisBridge{
		client:   client,
		channel:  channel,
		hub:      hub,
		minRetry: minRetryDelay,
		maxRetry: maxRetryDelay,
		log:      logger.WithField("channel", channel),
	}
}

// Publish sends ev to Redis. While the relay is not subscribed, or when
// Redis cannot be reached, the event is also delivered to the local hub.
func (b *RedisBridge) Publish(ev events.Event) {
	local := !b.subscribed.Load()
	if local {
		b.hub.Publish(ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).Error("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.WithError(err).WithField("event", ev.Type).Warn("redis publish failed, delivering locally")
		if !local {
			b.hub.Publish(ev)
		}
	}
}

// Subscribed reports whether the relay is currently receiving from Redis.
func (b *RedisBridge) Subscribed() bool {
	return b.subscribed.Load()
}

// Run relays messages from Redis into the hub until ctx is done. A failed
// or dropped subscription is retried with exponential backoff.
func (b *RedisBridge) Run(ctx context.Context) {
	delay := b.minRetry
	for {
		relayed, err := b.subscribe(ctx)
		if ctx.Err() != nil {
			return
		}
		if relayed {
			delay = b.minRetry
		}
		b.log.WithError(err).WithField("retry_in", delay).Warn("redis relay unavailable")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > b.maxRetry {
			delay = b.maxRetry
		}
	}
}

// subscribe relays until the subscription ends. relayed is true when the
// subscription was established.
func (b *RedisBridge) subscribe(ctx context.Context) (relayed bool, err error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	b.subscribed.Store(true)
	defer b.subscribed.Store(false)
	b.log.Info("relaying events from redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription closed")
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *RedisBridge) relay(payload string) {
	var ev events.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		b.log.WithError(err).Warn("discarding malformed event")
		return
	}
	b.hub.Publish(ev)
}

// Check fails when Redis does not answer or the relay is not subscribed.
func (b *RedisBridge) Check(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return err
	}
	if !b.subscribed.Load() {
		return ErrRelayDown
	}
	return nil
}
