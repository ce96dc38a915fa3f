//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/cache"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
)

// openTestRedis connects to the instance named by IVD_TEST_REDIS_ADDR. Run
// with:
//
//	go test -tags integration ./internal/cache/...
func openTestRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("IVD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IVD_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLISConfigRepositoryCachesReads(t *testing.T) {
	ctx := context.Background()
	redisClient := openTestRedis(t)
	inner := memory.NewLISConfigRepository()
	repo := cache.NewLISConfigRepository(inner, redisClient, time.Minute)

	require.NoError(t, inner.Create(ctx, &lisconfig.LISConfig{
		TenantID:         "tenant-a",
		IntegrationModel: lisconfig.ModelPull,
		APIEndpointURL:   "https://lis.example.test",
	}))

	first, err := repo.GetByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", first.TenantID)

	// Mutate the underlying store directly, bypassing the cache decorator.
	// Since nothing invalidated the entry, the next read through repo
	// should still return the cached (now stale) value.
	direct, err := inner.GetByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	direct.APIEndpointURL = "https://changed.example.test"
	require.NoError(t, inner.Update(ctx, direct))

	cached, err := repo.GetByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "https://lis.example.test", cached.APIEndpointURL,
		"a read through the cache should hit the stale cached entry when the store is mutated behind its back")
}

func TestLISConfigRepositoryUpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	redisClient := openTestRedis(t)
	inner := memory.NewLISConfigRepository()
	repo := cache.NewLISConfigRepository(inner, redisClient, time.Minute)

	require.NoError(t, repo.Create(ctx, &lisconfig.LISConfig{
		TenantID:         "tenant-b",
		IntegrationModel: lisconfig.ModelPush,
		APIEndpointURL:   "https://lis.example.test",
	}))

	cfg, err := repo.GetByTenant(ctx, "tenant-b")
	require.NoError(t, err)
	cfg.UploadBatchSize = 50
	require.NoError(t, repo.Update(ctx, cfg))

	refetched, err := repo.GetByTenant(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, 50, refetched.UploadBatchSize)
}
