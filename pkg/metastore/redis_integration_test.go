//go:build integration

package metastore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_RoundTrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	store := NewRedisStore(redisClient, 0, logger)
	ctx := context.Background()

	if _, err := store.Get(ctx, "post"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty Redis error = %v, want ErrNotFound", err)
	}

	stamp := time.UnixMilli(time.Now().UnixMilli())
	want := TypeMetadata{Since: "/api/v1/post/?limit=20&offset=40", TotalCount: 95, UpdatedAt: stamp}
	if err := store.Set(ctx, "post", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "post")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Since != want.Since {
		t.Errorf("Since = %q, want %q", got.Since, want.Since)
	}
	if got.TotalCount != want.TotalCount {
		t.Errorf("TotalCount = %d, want %d", got.TotalCount, want.TotalCount)
	}
	if !got.UpdatedAt.Equal(stamp) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, stamp)
	}

	// Overwrite with the last page: the token is cleared.
	if err := store.Set(ctx, "post", TypeMetadata{TotalCount: 95}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = store.Get(ctx, "post")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Since != "" {
		t.Errorf("Since = %q, want empty", got.Since)
	}

	if err := store.Delete(ctx, "post"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "post"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_Integration_TTL(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(redisClient, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if err := store.Set(ctx, "comment", TypeMetadata{Since: "offset=20"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	ttl, err := redisClient.TTL(ctx, Key("comment")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}
