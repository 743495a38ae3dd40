package store

import (
	"fmt"

	"github.com/cbodonnell/drag/pkg/game/types"
)

type field int

const (
	fieldPhase field = iota
	fieldError
	fieldPlayer
	fieldBlock
)

// Update is a write of one field of a GameRecord. Updates can only be built
// with the constructors below, so a writer can only ever touch the phase,
// the error or a single slot.
type Update struct {
	field  field
	slot   int
	phase  types.Phase
	errMsg string
	player *types.PlayerInfo
	block  types.BlockState
}

func SetPhase(phase types.Phase) Update {
	return Update{field: fieldPhase, phase: phase}
}

func SetError(msg string) Update {
	return Update{field: fieldError, errMsg: msg}
}

// SetPlayer writes a joined player. A nil player vacates the slot.
func SetPlayer(slot int, player *types.PlayerInfo) Update {
	var p *types.PlayerInfo
	if player != nil {
		copied := *player
		p = &copied
	}
	return Update{field: fieldPlayer, slot: slot, player: p}
}

func SetBlock(slot int, block types.BlockState) Update {
	return Update{field: fieldBlock, slot: slot, block: block}
}

// FieldPath returns the path segments of the written field.
func (u Update) FieldPath() []string {
	switch u.field {
	case fieldPhase:
		return []string{"phase"}
	case fieldError:
		return []string{"error"}
	case fieldPlayer:
		return []string{"joinedPlayers", types.SlotKey(u.slot)}
	default:
		return []string{"blockStates", types.SlotKey(u.slot)}
	}
}

// Path returns the dotted field path, e.g. "blockStates.3".
func (u Update) Path() string {
	p := u.FieldPath()
	if len(p) == 1 {
		return p[0]
	}
	return p[0] + "." + p[1]
}

// Value returns the wire value of the field.
func (u Update) Value() interface{} {
	switch u.field {
	case fieldPhase:
		return string(u.phase)
	case fieldError:
		return u.errMsg
	case fieldPlayer:
		return types.PlayerInfoToDTO(u.player)
	default:
		return types.BlockStateToDTO(u.block)
	}
}

// Slot returns the written slot, or -1 for global fields.
func (u Update) Slot() int {
	if u.field == fieldPlayer || u.field == fieldBlock {
		return u.slot
	}
	return -1
}

// Apply writes the update into record.
func (u Update) Apply(record *types.GameRecord) {
	switch u.field {
	case fieldPhase:
		record.Phase = u.phase
	case fieldError:
		record.Error = u.errMsg
	case fieldPlayer:
		if record.JoinedPlayers == nil {
			record.JoinedPlayers = make(map[int]*types.PlayerInfo)
		}
		var p *types.PlayerInfo
		if u.player != nil {
			copied := *u.player
			p = &copied
		}
		record.JoinedPlayers[u.slot] = p
	case fieldBlock:
		if record.BlockStates == nil {
			record.BlockStates = make(map[int]types.BlockState)
		}
		record.BlockStates[u.slot] = u.block
	}
}

func (u Update) String() string {
	return fmt.Sprintf("%s=%v", u.Path(), u.Value())
}
