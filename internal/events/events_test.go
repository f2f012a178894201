package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestPublishQuietly(t *testing.T) {
	rec := &Recorder{}
	PublishQuietly(context.Background(), rec, Event{Type: TypeStatusChanged, ApplicationID: 9, From: "pending", To: "approved"})

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].ApplicationID)
	assert.False(t, got[0].OccurredAt.IsZero())

	failing := &failingPublisher{}
	PublishQuietly(context.Background(), failing, Event{Type: TypeStatusChanged})
	assert.Equal(t, 1, failing.calls)

	PublishQuietly(context.Background(), nil, Event{})
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}

func TestRedisPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rdb, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	pub := NewRedisPublisher(rdb, "tink.test")
	received := make(chan Event, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = pub.Subscribe(subCtx, func(e Event) { received <- e }) }()

	// Subscription is asynchronous; retry until the subscriber is attached.
	want := Event{Type: TypeStatusChanged, ApplicationID: 5, From: "pending", To: "rejected", OccurredAt: time.Now().UTC().Truncate(time.Second)}
	require.Eventually(t, func() bool {
		if err := pub.Publish(ctx, want); err != nil {
			return false
		}
		select {
		case got := <-received:
			assert.Equal(t, want.ApplicationID, got.ApplicationID)
			assert.Equal(t, want.To, got.To)
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 200*time.Millisecond)
}
