package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltstore/internal/domain/installation/storetest"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func newRedisTestStore(t *testing.T, client *redis.Client, clientID *string, opts ...func(*RedisInstallationStoreOptions)) *RedisInstallationStore {
	t.Helper()
	o := RedisInstallationStoreOptions{
		Client:   client,
		ClientID: clientID,
	}
	for _, fn := range opts {
		fn(&o)
	}
	store, err := NewRedisInstallationStore(o)
	require.NoError(t, err)
	return store
}

func strPtr(s string) *string { return &s }

func TestRedisInstallationStoreOrgWideLifecycle(t *testing.T) {
	client := newTestRedisClient(t)
	runner := &storetest.Runner{
		Store:        newRedisTestStore(t, client, nil),
		StoreClientA: newRedisTestStore(t, client, strPtr("111.AAA")),
		StoreClientB: newRedisTestStore(t, client, strPtr("111.BBB")),
	}
	runner.RunOrgWideInstallationTestCases(t)
}

func TestRedisInstallationStoreTeamLevelLifecycle(t *testing.T) {
	client := newTestRedisClient(t)
	runner := &storetest.Runner{
		Store:        newRedisTestStore(t, client, nil),
		StoreClientA: newRedisTestStore(t, client, strPtr("111.AAA")),
		StoreClientB: newRedisTestStore(t, client, strPtr("111.BBB")),
	}
	runner.RunTeamLevelInstallationTestCases(t)
}

func TestRedisInstallationStoreRequiresClient(t *testing.T) {
	_, err := NewRedisInstallationStore(RedisInstallationStoreOptions{})
	require.Error(t, err)
}

func TestRedisInstallationStoreNonHistoricalKeepsOneRecord(t *testing.T) {
	client := newTestRedisClient(t)
	historical := false
	store := newRedisTestStore(t, client, nil, func(o *RedisInstallationStoreOptions) {
		o.HistoricalDataEnabled = &historical
	})
	ctx := context.Background()

	expiresAt := time.Now().Unix()
	first := storetest.DefaultDataProvider{}.BuildTeamInstallation(expiresAt)
	require.NoError(t, store.StoreInstallation(ctx, first))

	second := storetest.DefaultDataProvider{}.BuildTeamInstallation(expiresAt)
	second.Bot.Token = "xoxb-replaced"
	require.NoError(t, store.StoreInstallation(ctx, second))

	count, err := client.ZCard(ctx, store.rowsKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	fetched, err := store.FetchInstallation(ctx, second.Query())
	require.NoError(t, err)
	require.NotNil(t, fetched.Bot)
	assert.Equal(t, "xoxb-replaced", fetched.Bot.Token)
}

func TestRedisInstallationStorePrefixIsolation(t *testing.T) {
	client := newTestRedisClient(t)
	storeA := newRedisTestStore(t, client, nil, func(o *RedisInstallationStoreOptions) {
		o.Prefix = "app-a:"
	})
	storeB := newRedisTestStore(t, client, nil, func(o *RedisInstallationStoreOptions) {
		o.Prefix = "app-b:"
	})
	ctx := context.Background()

	inst := storetest.DefaultDataProvider{}.BuildTeamInstallation(time.Now().Unix())
	require.NoError(t, storeA.StoreInstallation(ctx, inst))

	_, err := storeB.FetchInstallation(ctx, inst.Query())
	require.Error(t, err)
}
