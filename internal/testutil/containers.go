package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Containers are started once per test binary and shared by every suite.
// They are never started under -short.

type sharedContainer struct {
	once     sync.Once
	endpoint string
	err      error
}

var (
	pg    sharedContainer
	redis sharedContainer
	mongo sharedContainer
)

func (c *sharedContainer) get(t *testing.T, start func(ctx context.Context) (testcontainers.Container, string, error)) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}

	// Containers live for the whole test binary; the testcontainers reaper
	// removes them afterwards.
	c.once.Do(func() {
		// Give generous timeout in CI environments
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		ctr, endpoint, err := start(ctx)
		if err != nil {
			if ctr != nil {
				_ = ctr.Terminate(context.Background()) // best-effort cleanup
			}
			c.err = err
			return
		}
		c.endpoint = endpoint
	})

	if c.err != nil {
		t.Skipf("container unavailable: %v", c.err)
	}
	return c.endpoint
}

// PostgresDSN returns a DSN for a shared postgres:16 container.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	return pg.get(t, func(ctx context.Context) (testcontainers.Container, string, error) {
		ctr, err := runContainer(
			ctx, "postgres:16", "5432/tcp",
			testcontainers.WithWaitStrategy(
				wait.ForAll(
					wait.ForListeningPort("5432/tcp"),
					wait.ForLog("ready to accept connections"),
					wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
						return fmt.Sprintf("postgres://comgr:comgr@%s:%s/comgr_test?sslmode=disable", host, port.Port())
					}).WithQuery("SELECT 1"),
				).WithDeadline(2*time.Minute),
			),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     "comgr",
				"POSTGRES_PASSWORD": "comgr",
				"POSTGRES_DB":       "comgr_test",
			}),
		)
		if err != nil {
			return nil, "", err
		}
		endpoint, err := ctr.Endpoint(ctx, "")
		if err != nil {
			return ctr, "", err
		}
		return ctr, fmt.Sprintf("postgres://comgr:comgr@%s/comgr_test?sslmode=disable", endpoint), nil
	})
}

// RedisAddress returns host:port of a shared redis container.
func RedisAddress(t *testing.T) string {
	t.Helper()
	return redis.get(t, func(ctx context.Context) (testcontainers.Container, string, error) {
		ctr, err := runContainer(
			ctx, "redis:latest", "6379/tcp",
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			),
		)
		if err != nil {
			return nil, "", err
		}
		endpoint, err := ctr.Endpoint(ctx, "")
		return ctr, endpoint, err
	})
}

// MongoURI returns a connection URI for a shared mongo:7 container.
func MongoURI(t *testing.T) string {
	t.Helper()
	return mongo.get(t, func(ctx context.Context) (testcontainers.Container, string, error) {
		ctr, err := runContainer(
			ctx, "mongo:7", "27017/tcp",
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("27017/tcp"),
				wait.ForLog("mongod startup complete"),
			),
		)
		if err != nil {
			return nil, "", err
		}
		endpoint, err := ctr.Endpoint(ctx, "")
		if err != nil {
			return ctr, "", err
		}
		return ctr, fmt.Sprintf("mongodb://%s", endpoint), nil
	})
}

// runContainer starts a container from image with port exposed, applying opts
// to the request. It uses GenericContainer, which is available in the
// testcontainers-go versions that build with this module's Go toolchain.
func runContainer(ctx context.Context, image, port string, opts ...testcontainers.CustomizeRequestOption) (testcontainers.Container, error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
		},
		Started: true,
	}
	for _, opt := range opts {
		if err := opt.Customize(&req); err != nil {
			return nil, err
		}
	}
	return testcontainers.GenericContainer(ctx, req)
}
