package waiter

import (
	"context"
	"sync"
	"time"

	"github.com/cbodonnell/drag/pkg/game/types"
)

// Predicate is evaluated against every observed version of a record. The
// record is nil when it does not exist.
type Predicate func(record *types.GameRecord) bool

// Pending is a one-shot wait. It resolves at most once, with the first of
// predicate success, timeout, transport failure or cancellation.
type Pending struct {
	key  string
	pred Predicate

	lock     sync.Mutex
	resolved bool
	timer    *time.Timer
	record   *types.GameRecord
	err      error
	done     chan struct{}

	forget func(*Pending)
}

func newPending(key string, pred Predicate) *Pending {
	return &Pending{
		key:  key,
		pred: pred,
		done: make(chan struct{}),
	}
}

// resolve reports whether this call settled the wait.
func (p *Pending) resolve(record *types.GameRecord, err error) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.resolved {
		return false
	}
	p.resolved = true
	p.record = record
	p.err = err
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	return true
}

func (p *Pending) startTimer(timeout time.Duration, onExpire func()) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.resolved {
		return
	}
	p.timer = time.AfterFunc(timeout, onExpire)
}

// Done is closed once the wait is resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the wait resolves. Cancelling ctx resolves it with the
// context's error.
func (p *Pending) Wait(ctx context.Context) (*types.GameRecord, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		if p.resolve(nil, ctx.Err()) && p.forget != nil {
			p.forget(p)
		}
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.record, p.err
}

// Watch is a persistent registration. Its callback runs for every observed
// version that satisfies the predicate until it is cancelled.
type Watch struct {
	key         string
	pred        Predicate
	onSatisfied func(*types.GameRecord)
	onError     func(error)
	cancel      func(*Watch)
	once        sync.Once
}

// Cancel removes the watch. It is safe to call more than once.
func (w *Watch) Cancel() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel(w)
		}
	})
}
