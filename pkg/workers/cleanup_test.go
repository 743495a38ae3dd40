package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbodonnell/drag/pkg/queue"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuitter struct {
	mock.Mock
}

func (m *mockQuitter) Quit(ctx context.Context, gameID string, playerID int) error {
	args := m.Called(gameID, playerID)
	return args.Error(0)
}

func startWorker(t *testing.T, quitter Quitter, maxAttempts int) (*CleanupWorker, <-chan error) {
	t.Helper()
	done := make(chan error, 1)
	w := NewCleanupWorker(NewCleanupWorkerOptions{
		Queue:       queue.NewInMemoryQueue(),
		Quitter:     quitter,
		MaxAttempts: maxAttempts,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		OnDone: func(job CleanupJob, err error) {
			done <- err
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)
	return w, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup job did not finish")
		return nil
	}
}

func TestCleanupWorkerRetriesUntilSuccess(t *testing.T) {
	quitter := &mockQuitter{}
	quitter.On("Quit", "ABCDEF", 3).Return(errors.New("unavailable")).Twice()
	quitter.On("Quit", "ABCDEF", 3).Return(nil).Once()

	w, done := startWorker(t, quitter, 5)
	require.NoError(t, w.Schedule("ABCDEF", 3))

	assert.NoError(t, waitDone(t, done))
	quitter.AssertNumberOfCalls(t, "Quit", 3)
}

func TestCleanupWorkerTreatsMissingGameAsDone(t *testing.T) {
	quitter := &mockQuitter{}
	quitter.On("Quit", "ABCDEF", 1).Return(&store.ErrNotFound{ID: "ABCDEF"}).Once()

	w, done := startWorker(t, quitter, 5)
	require.NoError(t, w.Schedule("ABCDEF", 1))

	assert.NoError(t, waitDone(t, done))
	quitter.AssertExpectations(t)
}

func TestCleanupWorkerGivesUp(t *testing.T) {
	quitter := &mockQuitter{}
	unavailable := errors.New("unavailable")
	quitter.On("Quit", "ABCDEF", 2).Return(unavailable)

	w, done := startWorker(t, quitter, 3)
	require.NoError(t, w.Schedule("ABCDEF", 2))

	assert.ErrorIs(t, waitDone(t, done), unavailable)
	quitter.AssertNumberOfCalls(t, "Quit", 3)
}

func TestCleanupBackoff(t *testing.T) {
	w := NewCleanupWorker(NewCleanupWorkerOptions{
		Queue:       queue.NewInMemoryQueue(),
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  time.Second,
	})
	assert.Equal(t, 100*time.Millisecond, w.backoff(1))
	assert.Equal(t, 200*time.Millisecond, w.backoff(2))
	assert.Equal(t, 800*time.Millisecond, w.backoff(4))
	assert.Equal(t, time.Second, w.backoff(5))
}
