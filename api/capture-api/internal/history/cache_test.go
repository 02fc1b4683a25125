package internal_history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewResultCache(client, newTestLogger(t), time.Hour)
	ctx := context.Background()

	mock.ExpectSet("capture:result:s-1", "ok", time.Hour).SetVal("OK")
	mock.ExpectGet("capture:result:s-1").SetVal("ok")
	mock.ExpectGet("capture:result:s-2").RedisNil()
	mock.ExpectGet("capture:result:s-3").SetErr(errors.New("connection refused"))

	require.NoError(t, cache.Put(ctx, "s-1", "ok"))

	got, ok, err := cache.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", got)

	_, ok, err = cache.Get(ctx, "s-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = cache.Get(ctx, "s-3")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultCache_DefaultTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewResultCache(client, newTestLogger(t), 0)

	mock.ExpectSet("capture:result:s-1", "ok", DefaultResultTTL).SetErr(errors.New("readonly"))
	assert.Error(t, cache.Put(context.Background(), "s-1", "ok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
