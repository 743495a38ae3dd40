package types

import (
	"sort"

	"github.com/cbodonnell/drag/pkg/drawing"
)

// HostSlot is the slot of the player allowed to write the global phase.
const HostSlot = 0

// BlockState is one slot's payload for the current round.
type BlockState struct {
	OwnerSlot int
	Word      string
	Board     drawing.Board
	Completed bool
}

// GameRecord is the shared document of one game.
type GameRecord struct {
	ID               string
	RoundTimeSeconds int64
	MaxPlayers       int
	Phase            Phase
	Language         string
	// JoinedPlayers maps slots to players. A nil entry is a vacated slot.
	JoinedPlayers map[int]*PlayerInfo
	BlockStates   map[int]BlockState
	Error         string
}

func NewGameRecord(id string, maxPlayers int, roundTimeSeconds int64, language string) *GameRecord {
	return &GameRecord{
		ID:               id,
		RoundTimeSeconds: roundTimeSeconds,
		MaxPlayers:       maxPlayers,
		Phase:            PhaseWaiting,
		Language:         language,
		JoinedPlayers:    make(map[int]*PlayerInfo),
		BlockStates:      make(map[int]BlockState),
	}
}

// Copy returns a deep copy of the record.
func (g *GameRecord) Copy() *GameRecord {
	if g == nil {
		return nil
	}
	c := *g
	c.JoinedPlayers = make(map[int]*PlayerInfo, len(g.JoinedPlayers))
	for slot, p := range g.JoinedPlayers {
		if p == nil {
			c.JoinedPlayers[slot] = nil
			continue
		}
		pc := *p
		c.JoinedPlayers[slot] = &pc
	}
	c.BlockStates = make(map[int]BlockState, len(g.BlockStates))
	for slot, b := range g.BlockStates {
		c.BlockStates[slot] = b
	}
	return &c
}

// Player returns the player in slot, or nil when the slot is vacant.
func (g *GameRecord) Player(slot int) *PlayerInfo {
	return g.JoinedPlayers[slot]
}

// Occupied returns the occupied slots in ascending order.
func (g *GameRecord) Occupied() []int {
	slots := make([]int, 0, len(g.JoinedPlayers))
	for slot, p := range g.JoinedPlayers {
		if p != nil {
			slots = append(slots, slot)
		}
	}
	sort.Ints(slots)
	return slots
}

// OccupiedCount returns the number of joined players. Vacated slots do not count.
func (g *GameRecord) OccupiedCount() int {
	n := 0
	for _, p := range g.JoinedPlayers {
		if p != nil {
			n++
		}
	}
	return n
}

func (g *GameRecord) IsFull() bool {
	return g.OccupiedCount() >= g.MaxPlayers
}

// IsJoinable reports whether the record is an open lobby.
func (g *GameRecord) IsJoinable() bool {
	return g.Phase == PhaseWaiting && !g.IsFull()
}

// HasAllBlocks reports whether every slot has published a block.
func (g *GameRecord) HasAllBlocks() bool {
	for slot := 0; slot < g.MaxPlayers; slot++ {
		if _, ok := g.BlockStates[slot]; !ok {
			return false
		}
	}
	return true
}

// AllCompleted reports whether every published block has the given
// completion flag. A record without blocks never satisfies it.
func (g *GameRecord) AllCompleted(completed bool) bool {
	if len(g.BlockStates) == 0 {
		return false
	}
	for _, b := range g.BlockStates {
		if b.Completed != completed {
			return false
		}
	}
	return true
}

// HasPlayerNamed reports whether an occupied slot uses name.
func (g *GameRecord) HasPlayerNamed(name string) bool {
	for _, p := range g.JoinedPlayers {
		if p != nil && p.Name == name {
			return true
		}
	}
	return false
}
