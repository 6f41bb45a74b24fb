package queue

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway redis container. Run with QUEUE_IT=1.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("QUEUE_IT") != "1" {
		t.Skip("set QUEUE_IT=1 to run the redis queue tests (needs docker)")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisQueue(t *testing.T) {
	rdb := startRedis(t)
	exercise(t, NewRedis(rdb, "test", Notifications))

	n, err := rdb.ZCard(context.Background(), "test:queue:"+Notifications+":leases").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRedeliversUnackedJob(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	q := NewRedis(rdb, "test", "stale", WithVisibility(50*time.Millisecond))

	job, err := NewJob("welcome", welcome{Email: "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, job))

	// reserved by a worker that never acks
	lost, err := q.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, lost)

	none, err := q.Reserve(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, none, "job must stay hidden while its lease is live")

	time.Sleep(100 * time.Millisecond)
	again, err := q.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)
	require.NoError(t, q.Ack(ctx, again))

	held, err := rdb.LLen(ctx, q.processing).Result()
	require.NoError(t, err)
	assert.Zero(t, held)
	leased, err := rdb.ZCard(ctx, q.leases).Result()
	require.NoError(t, err)
	assert.Zero(t, leased)
}

func TestRedisReclaimsUnleasedEntry(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	q := NewRedis(rdb, "test", "orphan", WithVisibility(50*time.Millisecond))

	// a worker that died between BLMOVE and taking the lease
	job, err := NewJob("welcome", welcome{Email: "b@example.com"})
	require.NoError(t, err)
	raw, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, rdb.LPush(ctx, q.processing, raw).Err())

	none, err := q.Reserve(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, none)

	time.Sleep(100 * time.Millisecond)
	got, err := q.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	require.NoError(t, q.Ack(ctx, got))
}
