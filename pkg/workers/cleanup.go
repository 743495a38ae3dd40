package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/queue"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/google/uuid"
)

const (
	DefaultCleanupMaxAttempts = 10
	DefaultCleanupBaseBackoff = 500 * time.Millisecond
	DefaultCleanupMaxBackoff  = 30 * time.Second
)

// Quitter removes a player from a game. Quitting twice must be harmless.
type Quitter interface {
	Quit(ctx context.Context, gameID string, playerID int) error
}

// CleanupJob asks for a player to be removed from a game.
type CleanupJob struct {
	ID       uuid.UUID
	GameID   string
	PlayerID int
	Attempts int
}

type CleanupWorker struct {
	queue       queue.Queue
	quitter     Quitter
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	onDone      func(job CleanupJob, err error)
}

type NewCleanupWorkerOptions struct {
	Queue       queue.Queue
	Quitter     Quitter
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// OnDone, if set, is called once per job with nil on success or the
	// last error when the job is given up.
	OnDone func(job CleanupJob, err error)
}

// NewCleanupWorker creates a new CleanupWorker.
// The worker removes players from games in the background so a player that
// leaves while the store is unreachable is eventually removed anyway.
// Failed jobs are retried with exponential backoff.
func NewCleanupWorker(opts NewCleanupWorkerOptions) *CleanupWorker {
	w := &CleanupWorker{
		queue:       opts.Queue,
		quitter:     opts.Quitter,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		onDone:      opts.OnDone,
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = DefaultCleanupMaxAttempts
	}
	if w.baseBackoff <= 0 {
		w.baseBackoff = DefaultCleanupBaseBackoff
	}
	if w.maxBackoff <= 0 {
		w.maxBackoff = DefaultCleanupMaxBackoff
	}
	return w
}

// Schedule enqueues a cleanup job for a player.
func (w *CleanupWorker) Schedule(gameID string, playerID int) error {
	job := CleanupJob{
		ID:       uuid.New(),
		GameID:   gameID,
		PlayerID: playerID,
	}
	if err := w.queue.Enqueue(job); err != nil {
		return fmt.Errorf("failed to enqueue cleanup job for game %s: %v", gameID, err)
	}
	log.Debug("Scheduled cleanup job %s for player %d of game %s", job.ID, playerID, gameID)
	return nil
}

func (w *CleanupWorker) Start(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		job, ok := item.(CleanupJob)
		if !ok {
			log.Error("unhandled cleanup queue item type: %T", item)
			continue
		}
		w.run(ctx, job)
	}
}

func (w *CleanupWorker) run(ctx context.Context, job CleanupJob) {
	job.Attempts++
	err := w.quitter.Quit(ctx, job.GameID, job.PlayerID)
	if err == nil || store.IsNotFound(err) {
		log.Debug("Cleanup job %s done after %d attempts", job.ID, job.Attempts)
		w.done(job, nil)
		return
	}
	if job.Attempts >= w.maxAttempts {
		log.Error("Giving up cleanup job %s for game %s after %d attempts: %v", job.ID, job.GameID, job.Attempts, err)
		w.done(job, err)
		return
	}

	backoff := w.backoff(job.Attempts)
	log.Warn("Cleanup job %s for game %s failed, retrying in %v: %v", job.ID, job.GameID, backoff, err)
	time.AfterFunc(backoff, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.queue.Enqueue(job); err != nil {
			log.Error("Failed to requeue cleanup job %s: %v", job.ID, err)
			w.done(job, err)
		}
	})
}

func (w *CleanupWorker) backoff(attempts int) time.Duration {
	backoff := w.baseBackoff
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	return backoff
}

func (w *CleanupWorker) done(job CleanupJob, err error) {
	if w.onDone != nil {
		w.onDone(job, err)
	}
}
