package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cbodonnell/drag/pkg/game/types"
)

// InMemoryStore keeps records in process. Every read returns a deep copy
// and every committed write is fanned out to subscribers in commit order.
type InMemoryStore struct {
	lock        sync.Mutex
	records     map[string]*types.GameRecord
	subscribers map[string]map[*memorySubscription]struct{}
	closed      bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:     make(map[string]*types.GameRecord),
		subscribers: make(map[string]map[*memorySubscription]struct{}),
	}
}

func (m *InMemoryStore) Get(ctx context.Context, id string) (*types.GameRecord, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, &ErrNotFound{ID: id}
	}
	return record.Copy(), nil
}

func (m *InMemoryStore) Transact(ctx context.Context, id string, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	tx := &memoryTx{id: id}
	if record, ok := m.records[id]; ok {
		tx.record = record.Copy()
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}
	if tx.record == nil {
		delete(m.records, id)
		m.publishLocked(id, Event{Deleted: true})
		return nil
	}
	m.records[id] = tx.record
	m.publishLocked(id, Event{Record: tx.record.Copy()})
	return nil
}

func (m *InMemoryStore) Patch(ctx context.Context, id string, update Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	record, ok := m.records[id]
	if !ok {
		return &ErrNotFound{ID: id}
	}
	update.Apply(record)
	m.publishLocked(id, Event{Record: record.Copy()})
	return nil
}

func (m *InMemoryStore) Subscribe(ctx context.Context, id string) (Subscription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}
	sub := newMemorySubscription(func(s *memorySubscription) {
		m.lock.Lock()
		defer m.lock.Unlock()
		delete(m.subscribers[id], s)
	})
	if m.subscribers[id] == nil {
		m.subscribers[id] = make(map[*memorySubscription]struct{})
	}
	m.subscribers[id][sub] = struct{}{}
	if record, ok := m.records[id]; ok {
		sub.push(Event{Record: record.Copy()})
	}
	return sub, nil
}

func (m *InMemoryStore) ListLobbies(ctx context.Context) ([]*types.GameRecord, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	lobbies := make([]*types.GameRecord, 0)
	for _, record := range m.records {
		if record.IsJoinable() {
			lobbies = append(lobbies, record.Copy())
		}
	}
	sort.Slice(lobbies, func(i, j int) bool { return lobbies[i].ID < lobbies[j].ID })
	return lobbies, nil
}

// FailSubscriptions delivers err to every subscriber of id and ends their
// streams, as a broken connection would.
func (m *InMemoryStore) FailSubscriptions(id string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for sub := range m.subscribers[id] {
		sub.push(Event{Err: err})
		delete(m.subscribers[id], sub)
	}
}

func (m *InMemoryStore) Close() error {
	m.lock.Lock()
	subs := make([]*memorySubscription, 0)
	for _, set := range m.subscribers {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	m.subscribers = make(map[string]map[*memorySubscription]struct{})
	m.closed = true
	m.lock.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
	return nil
}

func (m *InMemoryStore) publishLocked(id string, ev Event) {
	for sub := range m.subscribers[id] {
		sub.push(ev)
	}
}

type memoryTx struct {
	id     string
	record *types.GameRecord
	dirty  bool
}

func (t *memoryTx) Get() (*types.GameRecord, error) {
	if t.record == nil {
		return nil, &ErrNotFound{ID: t.id}
	}
	return t.record.Copy(), nil
}

func (t *memoryTx) Create(record *types.GameRecord) error {
	if t.record != nil {
		return &ErrAlreadyExists{ID: t.id}
	}
	t.record = record.Copy()
	t.record.ID = t.id
	t.dirty = true
	return nil
}

func (t *memoryTx) Update(updates ...Update) error {
	if t.record == nil {
		return &ErrNotFound{ID: t.id}
	}
	for _, u := range updates {
		u.Apply(t.record)
	}
	t.dirty = true
	return nil
}

func (t *memoryTx) Delete() error {
	if t.record == nil {
		return &ErrNotFound{ID: t.id}
	}
	t.record = nil
	t.dirty = true
	return nil
}

// memorySubscription buffers events without bound so a slow consumer never
// blocks a writer.
type memorySubscription struct {
	lock    sync.Mutex
	queue   []Event
	signal  chan struct{}
	out     chan Event
	done    chan struct{}
	once    sync.Once
	onClose func(*memorySubscription)
}

func newMemorySubscription(onClose func(*memorySubscription)) *memorySubscription {
	s := &memorySubscription{
		signal:  make(chan struct{}, 1),
		out:     make(chan Event),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	go s.pump()
	return s
}

func (s *memorySubscription) push(ev Event) {
	s.lock.Lock()
	s.queue = append(s.queue, ev)
	s.lock.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		for {
			s.lock.Lock()
			if len(s.queue) == 0 {
				s.lock.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.lock.Unlock()

			select {
			case s.out <- ev:
			case <-s.done:
				return
			}
			if ev.Err != nil {
				return
			}
		}
	}
}

func (s *memorySubscription) Updates() <-chan Event {
	return s.out
}

func (s *memorySubscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *memorySubscription) Close() error {
	s.stop()
	if s.onClose != nil {
		s.onClose(s)
	}
	return nil
}
