package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitInvalidURL(t *testing.T) {
	err := Init("://invalid-url", "")
	assert.Error(t, err)
}

func TestUnconfiguredClientBehavesLikeMiss(t *testing.T) {
	SetClient(nil)
	assert.False(t, Available())

	ctx := context.Background()
	assert.ErrorIs(t, Set(ctx, "k", "v", time.Second), ErrNotConfigured)
	_, err := Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, Del(ctx, "k"), ErrNotConfigured)
}

func TestBasicOpsAgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	SetClient(cli)
	defer SetClient(nil)

	assert.True(t, Available())
	assert.NotNil(t, GetClient())

	ctx := context.Background()
	require.NoError(t, Set(ctx, "k", "v", time.Minute))

	got, err := Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.FastForward(2 * time.Minute)
	_, err = Get(ctx, "k")
	assert.ErrorIs(t, err, goredis.Nil)

	require.NoError(t, Set(ctx, "k2", "v2", time.Minute))
	require.NoError(t, Del(ctx, "k2"))
	_, err = Get(ctx, "k2")
	assert.ErrorIs(t, err, goredis.Nil)
}
