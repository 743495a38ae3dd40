package store

import (
	"context"

	"github.com/cbodonnell/drag/pkg/game/types"
)

// Store holds one shared GameRecord per game id. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, id string) (*types.GameRecord, error)
	// Transact runs fn against a consistent snapshot and applies its writes
	// only if no conflicting write happened meanwhile. fn may run more than
	// once and must not have side effects besides its Tx calls.
	Transact(ctx context.Context, id string, fn TxFunc) error
	// Patch writes a single field. It is not transactional with other writes.
	Patch(ctx context.Context, id string, update Update) error
	// Subscribe streams the current record followed by every later version.
	Subscribe(ctx context.Context, id string) (Subscription, error)
	// ListLobbies returns the records that are still waiting for players.
	ListLobbies(ctx context.Context) ([]*types.GameRecord, error)
	Close() error
}

// Tx is the view of a record inside a transaction.
type Tx interface {
	// Get returns the snapshot the transaction observes, or ErrNotFound.
	Get() (*types.GameRecord, error)
	// Create inserts record, failing with ErrAlreadyExists.
	Create(record *types.GameRecord) error
	// Update applies updates to an existing record.
	Update(updates ...Update) error
	// Delete removes the record.
	Delete() error
}

type TxFunc func(tx Tx) error

// Event is one notification of a subscription. Exactly one of Record,
// Deleted and Err is set.
type Event struct {
	Record  *types.GameRecord
	Deleted bool
	Err     error
}

// Subscription is a live stream of record versions. After an Err event the
// channel is closed and the subscription is unusable.
type Subscription interface {
	Updates() <-chan Event
	Close() error
}
