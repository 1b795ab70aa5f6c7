package testtool

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisImage = "redis:7"
	redisPort  = nat.Port("6379/tcp")
)

// RedisContainer throwaway redis for credential store tests
type RedisContainer struct {
	testcontainers.Container
	// Addr host:port reachable from the test process
	Addr string
}

// StartRedis 啟動 Redis 測試容器, terminated on test cleanup.
// The test is skipped when no container provider is available.
func StartRedis(t *testing.T) *RedisContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{string(redisPort)},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(redisPort),
				wait.ForLog("Ready to accept connections"),
			).WithDeadline(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := c.MappedPort(ctx, redisPort)
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	return &RedisContainer{Container: c, Addr: host + ":" + port.Port()}
}
