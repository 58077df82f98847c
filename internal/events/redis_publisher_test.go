package events

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cart-backend/internal/platform/logger"
)

func TestNoopPublisher(t *testing.T) {
	p := Noop()
	require.NoError(t, p.Publish(context.Background(), Event{Type: ItemAdded}))
	require.NoError(t, p.Close())
}

func TestRecorderOfType(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, Event{Type: ItemAdded}))
	require.NoError(t, r.Publish(ctx, Event{Type: Abandoned}))
	require.NoError(t, r.Publish(ctx, Event{Type: ItemAdded}))
	require.Len(t, r.Events(), 3)
	require.Len(t, r.OfType(ItemAdded), 2)
}

func TestNewRedisPublisherValidates(t *testing.T) {
	_, err := NewRedisPublisher(nil, nil, "", nil)
	require.Error(t, err)
	_, err = NewRedisPublisher(logger.Nop(), nil, "", nil)
	require.Error(t, err)
}

func TestRedisPublisherRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := "cart-events-test-" + uuid.NewString()[:8]
	got := make(chan Event, 1)
	require.NoError(t, Subscribe(ctx, logger.Nop(), rdb, channel, func(e Event) { got <- e }))

	pub, err := NewRedisPublisher(logger.Nop(), rdb, channel, nil)
	require.NoError(t, err)

	cartID := uuid.New()
	qty := 2
	require.NoError(t, pub.Publish(ctx, Event{
		Type:       ItemAdded,
		CartID:     cartID,
		Quantity:   &qty,
		TotalPrice: "20.00",
		OccurredAt: time.Now().UTC(),
	}))

	select {
	case e := <-got:
		require.Equal(t, ItemAdded, e.Type)
		require.Equal(t, cartID, e.CartID)
		require.NotNil(t, e.Quantity)
		require.Equal(t, 2, *e.Quantity)
		require.Equal(t, "20.00", e.TotalPrice)
	case <-ctx.Done():
		t.Fatalf("timed out waiting for event")
	}
}
