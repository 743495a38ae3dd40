package waiter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ABCDEF"

func newTestRegistry(t *testing.T) (*Registry, *store.InMemoryStore) {
	t.Helper()
	s := store.NewInMemoryStore()
	record := types.NewGameRecord(testKey, 5, 60, "en")
	record.JoinedPlayers[0] = &types.PlayerInfo{Name: "host", Slot: 0}
	require.NoError(t, s.Transact(context.Background(), testKey, func(tx store.Tx) error {
		return tx.Create(record)
	}))
	r := NewRegistry(s)
	t.Cleanup(func() {
		r.Close()
		s.Close()
	})
	return r, s
}

func phaseIs(phase types.Phase) Predicate {
	return func(record *types.GameRecord) bool {
		return record != nil && record.Phase == phase
	}
}

func listenerCount(r *Registry) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.listeners)
}

func TestWaitForAlreadySatisfied(t *testing.T) {
	r, _ := newTestRegistry(t)

	start := time.Now()
	record, err := r.WaitFor(context.Background(), testKey, phaseIs(types.PhaseWaiting), time.Second)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseWaiting, record.Phase)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitForResolvesOnLaterWrite(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()

	pending := r.Expect(ctx, testKey, phaseIs(types.PhaseDrawing), time.Second)
	require.NoError(t, s.Patch(ctx, testKey, store.SetPhase(types.PhaseDrawing)))

	record, err := pending.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseDrawing, record.Phase)
}

func TestWaitForMissingRecord(t *testing.T) {
	r, _ := newTestRegistry(t)
	record, err := r.WaitFor(context.Background(), "NOPE", func(record *types.GameRecord) bool {
		return record == nil
	}, time.Second)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestWaitForTimeout(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()

	pending := r.Expect(ctx, testKey, phaseIs(types.PhaseFinished), 50*time.Millisecond)
	_, err := pending.Wait(ctx)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	// a late match does not overwrite the timeout
	require.NoError(t, s.Patch(ctx, testKey, store.SetPhase(types.PhaseFinished)))
	time.Sleep(20 * time.Millisecond)
	record, err := pending.Wait(ctx)
	assert.True(t, IsTimeout(err))
	assert.Nil(t, record)
}

func TestWaitContextCancelled(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := r.WaitFor(ctx, testKey, phaseIs(types.PhaseFinished), 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransportErrorFailsEveryRegistrationOnce(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()

	first := r.Expect(ctx, testKey, phaseIs(types.PhaseDrawing), 2*time.Second)
	second := r.Expect(ctx, testKey, phaseIs(types.PhaseGuessing), 2*time.Second)
	var watchErrors int32
	watchFailed := make(chan struct{})
	r.Watch(ctx, testKey, phaseIs(types.PhaseError), nil, func(err error) {
		assert.True(t, IsTransport(err))
		if atomic.AddInt32(&watchErrors, 1) == 1 {
			close(watchFailed)
		}
	})

	broken := errors.New("connection reset")
	s.FailSubscriptions(testKey, broken)

	for _, p := range []*Pending{first, second} {
		_, err := p.Wait(ctx)
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.ErrorIs(t, err, broken)
	}
	select {
	case <-watchFailed:
	case <-time.After(time.Second):
		t.Fatal("watch was not failed")
	}

	// the next wait opens a fresh subscription
	pending := r.Expect(ctx, testKey, phaseIs(types.PhaseDrawing), time.Second)
	require.NoError(t, s.Patch(ctx, testKey, store.SetPhase(types.PhaseDrawing)))
	record, err := pending.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseDrawing, record.Phase)
	assert.Equal(t, int32(1), atomic.LoadInt32(&watchErrors))
}

func TestWatchFiresUntilCancelled(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()

	fired := make(chan *types.GameRecord, 4)
	w := r.Watch(ctx, testKey, phaseIs(types.PhaseError), func(record *types.GameRecord) {
		fired <- record
	}, nil)

	require.NoError(t, s.Transact(ctx, testKey, func(tx store.Tx) error {
		return tx.Update(store.SetPhase(types.PhaseError), store.SetError("boom"))
	}))
	select {
	case record := <-fired:
		assert.Equal(t, "boom", record.Error)
	case <-time.After(time.Second):
		t.Fatal("watch did not fire")
	}

	w.Cancel()
	w.Cancel()
	require.NoError(t, s.Patch(ctx, testKey, store.SetError("again")))
	select {
	case <-fired:
		t.Fatal("cancelled watch fired")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 0, listenerCount(r))
}

func TestUnregisterFailsPendingWaits(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	pending := r.Expect(ctx, testKey, phaseIs(types.PhaseFinished), time.Second)
	r.Unregister(testKey)

	_, err := pending.Wait(ctx)
	assert.ErrorIs(t, err, ErrUnregistered)
	assert.Equal(t, 0, listenerCount(r))
}

func TestAcquireKeepsListenerAlive(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	r.Acquire(testKey)
	_, err := r.WaitFor(ctx, testKey, phaseIs(types.PhaseWaiting), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, listenerCount(r))

	r.Release(testKey)
	assert.Equal(t, 0, listenerCount(r))

	// releasing an unknown key is a no-op
	r.Release("NOPE")
}
