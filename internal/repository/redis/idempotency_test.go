package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_Flow(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(client, 2*time.Hour)

	ctx := context.Background()
	key := KeyIdemReservation(9, "abc-123")

	mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)
	locked, err := store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	mock.ExpectSet(key, `RES:{"ok":true}`, 2*time.Hour).SetVal("OK")
	require.NoError(t, store.SaveResult(ctx, key, `{"ok":true}`))

	mock.ExpectGet(key).SetVal(`RES:{"ok":true}`)
	payload, ok, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"ok":true}`, payload)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_GetResult_LockIsNotAResult(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(client, time.Hour)

	key := KeyIdemReservation(9, "abc-123")
	mock.ExpectGet(key).SetVal("LOCK")

	_, ok, err := store.GetResult(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyStore_GetResult_Missing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(client, time.Hour)

	key := KeyIdemReservation(9, "missing")
	mock.ExpectGet(key).RedisNil()

	_, ok, err := store.GetResult(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}
