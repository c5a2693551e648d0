package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlacklist(t *testing.T) (*Blacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBlacklist(client), mr
}

func TestBlacklist_AddAndCheck(t *testing.T) {
	bl, _ := newTestBlacklist(t)
	ctx := context.Background()

	hit, err := bl.IsBlacklisted(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, bl.Add(ctx, "token-a", time.Minute))

	hit, err = bl.IsBlacklisted(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, hit)

	// Other tokens are unaffected.
	hit, err = bl.IsBlacklisted(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestBlacklist_EntryExpires(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "token-a", time.Minute))

	mr.FastForward(2 * time.Minute)

	hit, err := bl.IsBlacklisted(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestBlacklist_NonPositiveTTLSkipsWrite(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "token-a", 0))
	require.NoError(t, bl.Add(ctx, "token-b", -time.Minute))

	assert.Empty(t, mr.Keys())
}

func TestBlacklist_KeysArePrefixed(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "token-a", time.Minute))

	assert.True(t, mr.Exists("blacklist:token-a"))
}
