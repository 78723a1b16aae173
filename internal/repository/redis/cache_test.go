package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestGetJSON_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	mock.ExpectGet("k").SetVal(`{"id":7,"name":"Main Dome"}`)

	v, ok, err := GetJSON[payload](context.Background(), c, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{ID: 7, Name: "Main Dome"}, v)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJSON_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	mock.ExpectGet("k").RedisNil()

	_, ok, err := GetJSON[payload](context.Background(), c, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrSetJSON_LoadsAndCachesOnMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	// outer lookup, then the re-check inside singleflight
	mock.ExpectGet("k").RedisNil()
	mock.ExpectGet("k").RedisNil()
	mock.ExpectSet("k", `{"id":1,"name":"loaded"}`, time.Minute).SetVal("OK")

	loaded := 0
	v, err := GetOrSetJSON(context.Background(), c, "k", time.Minute,
		func(ctx context.Context) (payload, error) {
			loaded++
			return payload{ID: 1, Name: "loaded"}, nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Equal(t, payload{ID: 1, Name: "loaded"}, v)
}

func TestGetOrSetJSON_SkipsLoaderOnHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	mock.ExpectGet("k").SetVal(`{"id":2,"name":"cached"}`)

	v, err := GetOrSetJSON(context.Background(), c, "k", time.Minute,
		func(ctx context.Context) (payload, error) {
			t.Fatal("loader must not run on cache hit")
			return payload{}, nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, payload{ID: 2, Name: "cached"}, v)
}

func TestInvalidateSeason(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	mock.ExpectDel(KeySeasonDetail(42)).SetVal(1)

	require.NoError(t, c.InvalidateSeason(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}
