package waiter

import (
	"context"
	"sync"
	"time"

	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/store"
)

// Registry multiplexes waits and watches on a key onto a single store
// subscription. A subscription is opened lazily by the first registration,
// survives as long as the key is acquired or has registrations, and is
// dropped after a transport failure so the next registration opens a new one.
type Registry struct {
	store store.Store

	lock      sync.Mutex
	listeners map[string]*listener
}

type listener struct {
	key string

	// guarded by lock; the registry lock, when needed, is taken first
	lock    sync.Mutex
	refs    int
	sub     store.Subscription
	gen     uint64
	pending map[*Pending]struct{}
	watches map[*Watch]struct{}
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{
		store:     s,
		listeners: make(map[string]*listener),
	}
}

// Acquire keeps the subscription of key alive between registrations.
func (r *Registry) Acquire(key string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	l := r.listenerLocked(key)
	l.lock.Lock()
	l.refs++
	l.lock.Unlock()
}

// Release drops a reference taken by Acquire.
func (r *Registry) Release(key string) {
	r.lock.Lock()
	l, ok := r.listeners[key]
	if ok {
		l.lock.Lock()
		if l.refs > 0 {
			l.refs--
		}
		l.lock.Unlock()
	}
	r.lock.Unlock()
	if ok {
		r.maybeTeardown(l)
	}
}

// WaitFor blocks until the record of key satisfies pred. A timeout of zero
// waits until ctx is done.
func (r *Registry) WaitFor(ctx context.Context, key string, pred Predicate, timeout time.Duration) (*types.GameRecord, error) {
	return r.Expect(ctx, key, pred, timeout).Wait(ctx)
}

// Expect registers a one-shot wait and returns without blocking. Register
// before a write whose effect the wait must observe.
func (r *Registry) Expect(ctx context.Context, key string, pred Predicate, timeout time.Duration) *Pending {
	p := newPending(key, pred)

	l, gen, err := r.register(ctx, key, func(l *listener) { l.pending[p] = struct{}{} })
	if err != nil {
		p.resolve(nil, &TransportError{Key: key, Err: err})
		return p
	}
	p.forget = func(p *Pending) { r.forget(l, p) }
	if timeout > 0 {
		p.startTimer(timeout, func() {
			if p.resolve(nil, &TimeoutError{Key: key, Timeout: timeout}) {
				log.Debug("Wait on %s timed out after %v", key, timeout)
				r.forget(l, p)
			}
		})
	}

	// The condition may already hold, in which case no later version would
	// ever be pushed for it.
	record, err := r.store.Get(ctx, key)
	switch {
	case err == nil || store.IsNotFound(err):
		if pred(record) && p.resolve(record, nil) {
			r.forget(l, p)
		}
	case ctx.Err() != nil:
		if p.resolve(nil, ctx.Err()) {
			r.forget(l, p)
		}
	default:
		r.fail(l, gen, err)
	}
	return p
}

// Watch registers a persistent watch. onSatisfied runs for every version that
// satisfies pred, onError once when the subscription fails, after which the
// watch is gone. Callbacks never run under registry locks.
func (r *Registry) Watch(ctx context.Context, key string, pred Predicate, onSatisfied func(*types.GameRecord), onError func(error)) *Watch {
	w := &Watch{
		key:         key,
		pred:        pred,
		onSatisfied: onSatisfied,
		onError:     onError,
	}
	l, gen, err := r.register(ctx, key, func(l *listener) { l.watches[w] = struct{}{} })
	if err != nil {
		if onError != nil {
			onError(&TransportError{Key: key, Err: err})
		}
		return w
	}
	w.cancel = func(w *Watch) {
		l.lock.Lock()
		delete(l.watches, w)
		l.lock.Unlock()
		r.maybeTeardown(l)
	}

	record, err := r.store.Get(ctx, key)
	switch {
	case err == nil || store.IsNotFound(err):
		if pred(record) && w.registered(l) && onSatisfied != nil {
			onSatisfied(record)
		}
	case ctx.Err() != nil:
	default:
		r.fail(l, gen, err)
	}
	return w
}

func (w *Watch) registered(l *listener) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	_, ok := l.watches[w]
	return ok
}

// Unregister removes every registration of key and closes its subscription.
// Pending waits resolve with ErrUnregistered, watches are dropped silently.
func (r *Registry) Unregister(key string) {
	r.lock.Lock()
	l, ok := r.listeners[key]
	if !ok {
		r.lock.Unlock()
		return
	}
	delete(r.listeners, key)
	l.lock.Lock()
	pending := l.drainLocked()
	l.watches = make(map[*Watch]struct{})
	l.refs = 0
	l.lock.Unlock()
	r.lock.Unlock()

	for _, p := range pending {
		p.resolve(nil, ErrUnregistered)
	}
}

// Close unregisters every key.
func (r *Registry) Close() {
	r.lock.Lock()
	keys := make([]string, 0, len(r.listeners))
	for key := range r.listeners {
		keys = append(keys, key)
	}
	r.lock.Unlock()
	for _, key := range keys {
		r.Unregister(key)
	}
}

func (r *Registry) listenerLocked(key string) *listener {
	l, ok := r.listeners[key]
	if !ok {
		l = &listener{
			key:     key,
			pending: make(map[*Pending]struct{}),
			watches: make(map[*Watch]struct{}),
		}
		r.listeners[key] = l
	}
	return l
}

// register adds a registration and makes sure the key is subscribed. The
// listener is locked before the registry lock is released so a concurrent
// teardown cannot orphan it.
func (r *Registry) register(ctx context.Context, key string, add func(*listener)) (*listener, uint64, error) {
	r.lock.Lock()
	l := r.listenerLocked(key)
	l.lock.Lock()
	r.lock.Unlock()

	if l.sub == nil {
		sub, err := r.store.Subscribe(ctx, key)
		if err != nil {
			l.lock.Unlock()
			log.Warn("Failed to subscribe to %s: %v", key, err)
			r.maybeTeardown(l)
			return nil, 0, err
		}
		l.gen++
		l.sub = sub
		go r.consume(l, l.gen, sub)
	}
	add(l)
	gen := l.gen
	l.lock.Unlock()
	return l, gen, nil
}

func (r *Registry) consume(l *listener, gen uint64, sub store.Subscription) {
	for ev := range sub.Updates() {
		if ev.Err != nil {
			r.fail(l, gen, ev.Err)
			return
		}
		r.dispatch(l, gen, ev.Record)
	}
}

func (r *Registry) dispatch(l *listener, gen uint64, record *types.GameRecord) {
	l.lock.Lock()
	if l.gen != gen || l.sub == nil {
		l.lock.Unlock()
		return
	}
	var hits []*Pending
	for p := range l.pending {
		if p.pred(record) {
			hits = append(hits, p)
			delete(l.pending, p)
		}
	}
	var fires []*Watch
	for w := range l.watches {
		if w.pred(record) {
			fires = append(fires, w)
		}
	}
	l.lock.Unlock()

	for _, p := range hits {
		p.resolve(record.Copy(), nil)
	}
	for _, w := range fires {
		if w.onSatisfied != nil {
			w.onSatisfied(record.Copy())
		}
	}
	if len(hits) > 0 {
		r.maybeTeardown(l)
	}
}

// fail resolves every registration of the listener with a transport error
// and drops the subscription of generation gen.
func (r *Registry) fail(l *listener, gen uint64, cause error) {
	l.lock.Lock()
	if l.gen != gen || l.sub == nil {
		l.lock.Unlock()
		return
	}
	sub := l.sub
	l.sub = nil
	pending := l.drainLocked()
	watches := make([]*Watch, 0, len(l.watches))
	for w := range l.watches {
		watches = append(watches, w)
	}
	l.watches = make(map[*Watch]struct{})
	l.lock.Unlock()

	log.Warn("Subscription to %s failed, failing %d waits and %d watches: %v", l.key, len(pending), len(watches), cause)
	sub.Close()
	err := &TransportError{Key: l.key, Err: cause}
	for _, p := range pending {
		p.resolve(nil, err)
	}
	for _, w := range watches {
		if w.onError != nil {
			w.onError(err)
		}
	}
	r.maybeTeardown(l)
}

func (l *listener) drainLocked() []*Pending {
	pending := make([]*Pending, 0, len(l.pending))
	for p := range l.pending {
		pending = append(pending, p)
	}
	l.pending = make(map[*Pending]struct{})
	if l.sub != nil {
		l.sub.Close()
		l.sub = nil
	}
	return pending
}

func (r *Registry) forget(l *listener, p *Pending) {
	l.lock.Lock()
	delete(l.pending, p)
	l.lock.Unlock()
	r.maybeTeardown(l)
}

// maybeTeardown closes the subscription of an unused listener.
func (r *Registry) maybeTeardown(l *listener) {
	r.lock.Lock()
	defer r.lock.Unlock()
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.refs > 0 || len(l.pending) > 0 || len(l.watches) > 0 {
		return
	}
	if r.listeners[l.key] == l {
		delete(r.listeners, l.key)
	}
	if l.sub != nil {
		l.sub.Close()
		l.sub = nil
	}
}
