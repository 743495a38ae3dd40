package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/cbodonnell/drag/pkg/game/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DefaultFirestoreCollection = "games"

type NewFirestoreStoreOptions struct {
	ProjectID string
	// CredentialsFile is a service account key. When empty the application
	// default credentials are used, which also covers the emulator.
	CredentialsFile string
	Collection      string
}

// FirestoreStore keeps each game as a document of a collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(ctx context.Context, opts NewFirestoreStoreOptions) (*FirestoreStore, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	cfg := &firebase.Config{
		ProjectID: opts.ProjectID,
	}
	app, err := firebase.NewApp(ctx, cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore client: %v", err)
	}
	collection := opts.Collection
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*types.GameRecord, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(id, err)
	}
	return decodeDocument(id, snap)
}

func (s *FirestoreStore) Transact(ctx context.Context, id string, fn TxFunc) error {
	ref := s.doc(id)
	var fnErr error
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		fnErr = fn(&firestoreTx{id: id, ref: ref, tx: ftx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return mapFirestoreError(id, err)
}

func (s *FirestoreStore) Patch(ctx context.Context, id string, update Update) error {
	_, err := s.doc(id).Update(ctx, []firestore.Update{toFirestoreUpdate(update)})
	return mapFirestoreError(id, err)
}

func (s *FirestoreStore) Subscribe(ctx context.Context, id string) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())
	sub := &firestoreSubscription{
		iter:   s.doc(id).Snapshots(subCtx),
		out:    make(chan Event),
		cancel: cancel,
	}
	go sub.run(subCtx, id)
	return sub, nil
}

func (s *FirestoreStore) ListLobbies(ctx context.Context) ([]*types.GameRecord, error) {
	snaps, err := s.client.Collection(s.collection).
		Where("phase", "==", string(types.PhaseWaiting)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %v", err)
	}
	lobbies := make([]*types.GameRecord, 0, len(snaps))
	for _, snap := range snaps {
		record, err := decodeDocument(snap.Ref.ID, snap)
		if err != nil {
			return nil, err
		}
		if record.IsJoinable() {
			lobbies = append(lobbies, record)
		}
	}
	sort.Slice(lobbies, func(i, j int) bool { return lobbies[i].ID < lobbies[j].ID })
	return lobbies, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// firestoreTx reads at most once, firestore requires every read of a
// transaction to happen before its first write.
type firestoreTx struct {
	id     string
	ref    *firestore.DocumentRef
	tx     *firestore.Transaction
	read   bool
	record *types.GameRecord
}

func (t *firestoreTx) load() error {
	if t.read {
		return nil
	}
	snap, err := t.tx.Get(t.ref)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	t.read = true
	if err == nil && snap.Exists() {
		record, err := decodeDocument(t.id, snap)
		if err != nil {
			return err
		}
		t.record = record
	}
	return nil
}

func (t *firestoreTx) Get() (*types.GameRecord, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if t.record == nil {
		return nil, &ErrNotFound{ID: t.id}
	}
	return t.record.Copy(), nil
}

func (t *firestoreTx) Create(record *types.GameRecord) error {
	if err := t.load(); err != nil {
		return err
	}
	if t.record != nil {
		return &ErrAlreadyExists{ID: t.id}
	}
	t.record = record.Copy()
	t.record.ID = t.id
	return t.tx.Create(t.ref, types.GameRecordToDTO(t.record))
}

func (t *firestoreTx) Update(updates ...Update) error {
	if err := t.load(); err != nil {
		return err
	}
	if t.record == nil {
		return &ErrNotFound{ID: t.id}
	}
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		u.Apply(t.record)
		fsUpdates = append(fsUpdates, toFirestoreUpdate(u))
	}
	return t.tx.Update(t.ref, fsUpdates)
}

func (t *firestoreTx) Delete() error {
	if err := t.load(); err != nil {
		return err
	}
	if t.record == nil {
		return &ErrNotFound{ID: t.id}
	}
	t.record = nil
	return t.tx.Delete(t.ref)
}

type firestoreSubscription struct {
	iter   *firestore.DocumentSnapshotIterator
	out    chan Event
	cancel context.CancelFunc
	once   sync.Once
}

func (f *firestoreSubscription) run(ctx context.Context, id string) {
	defer close(f.out)
	defer f.iter.Stop()

	send := func(ev Event) bool {
		select {
		case f.out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for {
		snap, err := f.iter.Next()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, iterator.Done) {
				send(Event{Err: fmt.Errorf("subscription to game %s failed: %v", id, err)})
			}
			return
		}
		if !snap.Exists() {
			if !send(Event{Deleted: true}) {
				return
			}
			continue
		}
		record, err := decodeDocument(id, snap)
		if err != nil {
			send(Event{Err: err})
			return
		}
		if !send(Event{Record: record}) {
			return
		}
	}
}

func (f *firestoreSubscription) Updates() <-chan Event {
	return f.out
}

func (f *firestoreSubscription) Close() error {
	f.once.Do(f.cancel)
	return nil
}

func toFirestoreUpdate(u Update) firestore.Update {
	return firestore.Update{
		FieldPath: firestore.FieldPath(u.FieldPath()),
		Value:     u.Value(),
	}
}

func decodeDocument(id string, snap *firestore.DocumentSnapshot) (*types.GameRecord, error) {
	var dto types.GameRecordDTO
	if err := snap.DataTo(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode game %s: %v", id, err)
	}
	if dto.ID == "" {
		dto.ID = id
	}
	return types.GameRecordFromDTO(&dto)
}

func mapFirestoreError(id string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsAlreadyExists(err) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return &ErrNotFound{ID: id}
	case codes.AlreadyExists:
		return &ErrAlreadyExists{ID: id}
	}
	return err
}
