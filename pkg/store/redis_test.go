package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, NewRedisStoreOptions{})
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, _ := newTestRedisStore(t)
		return s
	})
}

func TestRedisStoreHashLayout(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	createGame(t, s, "ABCDEF", "host")
	require.NoError(t, s.Patch(ctx, "ABCDEF", SetPlayer(3, &types.PlayerInfo{Name: "bob", Slot: 3})))

	assert.Equal(t, "WAITING", mr.HGet("drag:game:ABCDEF", "phase"))
	assert.JSONEq(t, `{"name":"bob","slot":3}`, mr.HGet("drag:game:ABCDEF", "joinedPlayers.3"))
	assert.Equal(t, "2", mr.HGet("drag:game:ABCDEF", revisionField))
	isMember, err := mr.SIsMember("drag:lobbies", "ABCDEF")
	require.NoError(t, err)
	assert.True(t, isMember)

	// the game was the only lobby, so leaving the set removes the key
	require.NoError(t, s.Patch(ctx, "ABCDEF", SetPhase(types.PhaseDrawing)))
	assert.False(t, mr.Exists("drag:lobbies"))
}

func TestRedisStoreLobbySetKeepsOtherGames(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	createGame(t, s, "ABCDEF", "host")
	createGame(t, s, "GHIJKL", "other")

	require.NoError(t, s.Patch(ctx, "ABCDEF", SetPhase(types.PhaseDrawing)))
	members, err := mr.Members("drag:lobbies")
	require.NoError(t, err)
	assert.Equal(t, []string{"GHIJKL"}, members)
}

func TestRedisStoreSubscriptionEndsWhenConnectionDrops(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), NewRedisStoreOptions{})
	defer s.Close()
	ctx := context.Background()
	createGame(t, s, "ABCDEF", "host")

	sub, err := s.Subscribe(ctx, "ABCDEF")
	require.NoError(t, err)
	defer sub.Close()
	nextEvent(t, sub)

	mr.Close()
	ev := nextEvent(t, sub)
	assert.Error(t, ev.Err)
}

func TestDecodeSnapshot(t *testing.T) {
	fields, err := decodeSnapshot(`["phase","DRAWING","_rev","4"]`)
	require.NoError(t, err)
	assert.Equal(t, "DRAWING", fields["phase"])
	assert.Equal(t, int64(4), hashRevision(fields))

	_, err = decodeSnapshot(`["phase"]`)
	assert.Error(t, err)
}
