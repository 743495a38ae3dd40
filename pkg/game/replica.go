package game

import (
	"sync"
	"time"

	"github.com/cbodonnell/drag/pkg/game/types"
)

// Replica is the local view of a game: the last observed record and the
// player's own identity and block. Only the session writes to it.
type Replica struct {
	lock   sync.RWMutex
	record *types.GameRecord
	player types.LocalPlayer
	phase  types.Phase
	block  types.BlockState
	open   bool
	errMsg string
}

// Snapshot is a copy of the replica for display.
type Snapshot struct {
	Record    *types.GameRecord
	Player    types.LocalPlayer
	Phase     types.Phase
	Block     types.BlockState
	Open      bool
	Remaining time.Duration
	Error     string
}

func newReplica(record *types.GameRecord, player types.LocalPlayer) *Replica {
	return &Replica{
		record: record.Copy(),
		player: player,
		phase:  record.Phase,
	}
}

func (r *Replica) Record() *types.GameRecord {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.record.Copy()
}

func (r *Replica) Player() types.LocalPlayer {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.player
}

func (r *Replica) update(record *types.GameRecord) {
	if record == nil {
		return
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.record = record.Copy()
}

func (r *Replica) setPlayer(player types.LocalPlayer) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.player = player
}

// openRound hands the player its block for a round and accepts input.
func (r *Replica) openRound(phase types.Phase, block types.BlockState) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.phase = phase
	r.block = block
	r.open = true
}

// closeRound stops accepting input and returns the block as the player left it.
func (r *Replica) closeRound() types.BlockState {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.open = false
	return r.block
}

func (r *Replica) edit(fn func(phase types.Phase, block *types.BlockState) error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.open {
		return ErrInputClosed
	}
	return fn(r.phase, &r.block)
}

func (r *Replica) fail(message string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.open = false
	r.errMsg = message
}

func (r *Replica) snapshot(now time.Time) Snapshot {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s := Snapshot{
		Record: r.record.Copy(),
		Player: r.player,
		Phase:  r.phase,
		Block:  r.block,
		Open:   r.open,
		Error:  r.errMsg,
	}
	if r.open && r.record != nil {
		s.Remaining = r.player.Remaining(time.Duration(r.record.RoundTimeSeconds)*time.Second, now)
	}
	return s
}
