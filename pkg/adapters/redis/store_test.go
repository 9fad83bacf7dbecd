package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Ensure Store implements CheckpointStore
var _ ports.CheckpointStore = (*redis.Store)(nil)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunCheckpointStoreContract(t, store)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Minute))
	ctx := context.Background()

	cp := domain.Checkpoint{
		StatePath: []string{"complete"},
		Context:   json.RawMessage(`{"version":1}`),
	}
	require.NoError(t, store.Save(ctx, "ttl-session", cp))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "ttl-session")

	// Advance past the TTL: the key expires.
	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, "ttl-session")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("arbor:session:corrupt", "{not json"))

	_, err := store.Load(ctx, "corrupt")
	assert.ErrorIs(t, err, domain.ErrCheckpointInvalid)
}
