package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"comanda/internal/events"
	"comanda/internal/models"
	"comanda/internal/testutil"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

// acceptingRedis accepts every publish without a server behind it.
type acceptingRedis struct {
	*redis.Client

	mu        sync.Mutex
	published []string
}

func (r *acceptingRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, string(message.([]byte)))
	return redis.NewIntResult(0, nil)
}

func (r *acceptingRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (r *acceptingRedis) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

func TestRedisBridgeFallsBackToLocalDelivery(t *testing.T) {
	hub := NewHub(testutil.Logger())
	sub := hub.Subscribe(nil)
	bridge := NewRedisBridge(unreachableRedis(t), "comanda:events", hub, testutil.Logger())
	bridge.subscribed.Store(true)

	bridge.Publish(orderEvent(5, models.OrderStatusPending))

	require.Len(t, sub.C, 1)
	ev := <-sub.C
	assert.Equal(t, uint(5), ev.Order.ID)
}

func TestRedisBridgeDeliversLocallyWithoutRelay(t *testing.T) {
	hub := NewHub(testutil.Logger())
	sub := hub.Subscribe(nil)
	client := &acceptingRedis{Client: unreachableRedis(t)}
	bridge := NewRedisBridge(client, "comanda:events", hub, testutil.Logger())

	require.False(t, bridge.Subscribed())
	bridge.Publish(orderEvent(7, models.OrderStatusPending))

	assert.Equal(t, 1, client.count(), "other replicas still get the event")
	require.Len(t, sub.C, 1)
	ev := <-sub.C
	assert.Equal(t, uint(7), ev.Order.ID)

	// once subscribed, local delivery comes back through the relay
	bridge.subscribed.Store(true)
	bridge.Publish(orderEvent(8, models.OrderStatusPending))

	assert.Equal(t, 2, client.count())
	assert.Len(t, sub.C, 0)
}

func TestRedisBridgeRunRetriesUntilCancelled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	bridge := NewRedisBridge(unreachableRedis(t), "comanda:events", NewHub(logger), logger)
	bridge.minRetry = 5 * time.Millisecond
	bridge.maxRetry = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		failures := 0
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.WarnLevel && entry.Message == "redis relay unavailable" {
				failures++
			}
		}
		return failures >= 3
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, bridge.Subscribed())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRedisBridgeCheck(t *testing.T) {
	bridge := NewRedisBridge(unreachableRedis(t), "comanda:events", NewHub(testutil.Logger()), testutil.Logger())

	err := bridge.Check(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRelayDown, "ping fails first")

	bridge = NewRedisBridge(&acceptingRedis{Client: unreachableRedis(t)}, "comanda:events", NewHub(testutil.Logger()), testutil.Logger())
	assert.ErrorIs(t, bridge.Check(context.Background()), ErrRelayDown)

	bridge.subscribed.Store(true)
	assert.NoError(t, bridge.Check(context.Background()))
}

func TestRedisBridgeRelay(t *testing.T) {
	hub := NewHub(testutil.Logger())
	sub := hub.Subscribe(nil)
	bridge := NewRedisBridge(unreachableRedis(t), "comanda:events", hub, testutil.Logger())

	data, err := json.Marshal(events.Event{Type: events.MenuRotated, Category: models.MenuMidday})
	require.NoError(t, err)

	bridge.relay("not json")
	bridge.relay(string(data))

	require.Len(t, sub.C, 1)
	ev := <-sub.C
	assert.Equal(t, events.MenuRotated, ev.Type)
	assert.Equal(t, models.MenuMidday, ev.Category)
}
