package store

import (
	"context"
	"errors"
	"testing"

	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s := NewInMemoryStore()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	createGame(t, s, "ABCDEF", "host")

	record, err := s.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	record.Phase = types.PhaseError
	record.JoinedPlayers[0].Name = "mallory"

	record, err = s.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseWaiting, record.Phase)
	assert.Equal(t, "host", record.Player(0).Name)
}

func TestInMemoryStoreFailSubscriptions(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	createGame(t, s, "ABCDEF", "host")

	sub, err := s.Subscribe(ctx, "ABCDEF")
	require.NoError(t, err)
	nextEvent(t, sub)

	broken := errors.New("connection reset")
	s.FailSubscriptions("ABCDEF", broken)
	ev := nextEvent(t, sub)
	assert.ErrorIs(t, ev.Err, broken)

	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.NoError(t, sub.Close())
}

func TestInMemoryStoreSlowSubscriberDoesNotBlockWriters(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	createGame(t, s, "ABCDEF", "host")

	sub, err := s.Subscribe(ctx, "ABCDEF")
	require.NoError(t, err)
	defer sub.Close()

	for i := 1; i < 5; i++ {
		require.NoError(t, s.Patch(ctx, "ABCDEF", SetPlayer(i, &types.PlayerInfo{Name: "p", Slot: i})))
	}
	// initial value plus one event per patch, in commit order
	for i := 0; i < 5; i++ {
		ev := nextEvent(t, sub)
		require.NotNil(t, ev.Record)
		assert.Equal(t, i+1, ev.Record.OccupiedCount())
	}
}
