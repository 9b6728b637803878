package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLPushCappedKeepsNewestFirst(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, LPushCapped(ctx, "box", 5, time.Minute, fmt.Sprintf("n%d", i)))
	}

	items, err := ListRange(ctx, "box", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"n7", "n6", "n5", "n4", "n3"}, items)
}

func TestListSetAllRebuildsList(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	require.NoError(t, LPushCapped(ctx, "box", 5, time.Minute, "old"))
	require.NoError(t, ListSetAll(ctx, "box", []interface{}{"a", "b", "c"}, time.Minute))

	items, err := ListRange(ctx, "box", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)
}

func TestGetInt64(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	_, found, err := GetInt64(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetValue(ctx, "count", 42))
	n, found, err := GetInt64(ctx, "count")
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 42, n)
}
