package types

import (
	"fmt"
	"strconv"

	"github.com/cbodonnell/drag/pkg/drawing"
)

// GameRecordDTO is the wire form of a GameRecord, shared by every store.
type GameRecordDTO struct {
	ID               string                    `json:"id" firestore:"id"`
	RoundTimeSeconds int64                     `json:"roundTimeSeconds" firestore:"roundTimeSeconds"`
	MaxPlayers       int                       `json:"maxPlayers" firestore:"maxPlayers"`
	Phase            string                    `json:"phase" firestore:"phase"`
	Language         string                    `json:"language" firestore:"language"`
	JoinedPlayers    map[string]*PlayerInfoDTO `json:"joinedPlayers" firestore:"joinedPlayers"`
	BlockStates      map[string]BlockStateDTO  `json:"blockStates" firestore:"blockStates"`
	Error            *string                   `json:"error,omitempty" firestore:"error"`
}

type PlayerInfoDTO struct {
	Name string `json:"name" firestore:"name"`
	Slot int    `json:"slot" firestore:"slot"`
}

type BlockStateDTO struct {
	OwnerSlot int    `json:"ownerSlot" firestore:"ownerSlot"`
	Word      string `json:"word" firestore:"word"`
	Board     string `json:"board" firestore:"board"`
	Completed bool   `json:"completed" firestore:"completed"`
}

func SlotKey(slot int) string {
	return strconv.Itoa(slot)
}

func ParseSlotKey(key string) (int, error) {
	slot, err := strconv.Atoi(key)
	if err != nil || slot < 0 {
		return 0, fmt.Errorf("invalid slot key %q", key)
	}
	return slot, nil
}

func PlayerInfoToDTO(p *PlayerInfo) *PlayerInfoDTO {
	if p == nil {
		return nil
	}
	return &PlayerInfoDTO{Name: p.Name, Slot: p.Slot}
}

func PlayerInfoFromDTO(dto *PlayerInfoDTO) *PlayerInfo {
	if dto == nil {
		return nil
	}
	return &PlayerInfo{Name: dto.Name, Slot: dto.Slot}
}

func BlockStateToDTO(b BlockState) BlockStateDTO {
	return BlockStateDTO{
		OwnerSlot: b.OwnerSlot,
		Word:      b.Word,
		Board:     b.Board.Encode(),
		Completed: b.Completed,
	}
}

func BlockStateFromDTO(dto BlockStateDTO) (BlockState, error) {
	board, err := drawing.Decode(dto.Board)
	if err != nil {
		return BlockState{}, err
	}
	return BlockState{
		OwnerSlot: dto.OwnerSlot,
		Word:      dto.Word,
		Board:     board,
		Completed: dto.Completed,
	}, nil
}

func GameRecordToDTO(g *GameRecord) *GameRecordDTO {
	dto := &GameRecordDTO{
		ID:               g.ID,
		RoundTimeSeconds: g.RoundTimeSeconds,
		MaxPlayers:       g.MaxPlayers,
		Phase:            string(g.Phase),
		Language:         g.Language,
		JoinedPlayers:    make(map[string]*PlayerInfoDTO, len(g.JoinedPlayers)),
		BlockStates:      make(map[string]BlockStateDTO, len(g.BlockStates)),
	}
	for slot, p := range g.JoinedPlayers {
		dto.JoinedPlayers[SlotKey(slot)] = PlayerInfoToDTO(p)
	}
	for slot, b := range g.BlockStates {
		dto.BlockStates[SlotKey(slot)] = BlockStateToDTO(b)
	}
	if g.Error != "" {
		msg := g.Error
		dto.Error = &msg
	}
	return dto
}

func GameRecordFromDTO(dto *GameRecordDTO) (*GameRecord, error) {
	phase := Phase(dto.Phase)
	if !phase.Valid() {
		return nil, fmt.Errorf("game %s has invalid phase %q", dto.ID, dto.Phase)
	}
	g := &GameRecord{
		ID:               dto.ID,
		RoundTimeSeconds: dto.RoundTimeSeconds,
		MaxPlayers:       dto.MaxPlayers,
		Phase:            phase,
		Language:         dto.Language,
		JoinedPlayers:    make(map[int]*PlayerInfo, len(dto.JoinedPlayers)),
		BlockStates:      make(map[int]BlockState, len(dto.BlockStates)),
	}
	for key, p := range dto.JoinedPlayers {
		slot, err := ParseSlotKey(key)
		if err != nil {
			return nil, err
		}
		g.JoinedPlayers[slot] = PlayerInfoFromDTO(p)
	}
	for key, b := range dto.BlockStates {
		slot, err := ParseSlotKey(key)
		if err != nil {
			return nil, err
		}
		block, err := BlockStateFromDTO(b)
		if err != nil {
			return nil, fmt.Errorf("game %s block %d: %w", dto.ID, slot, err)
		}
		g.BlockStates[slot] = block
	}
	if dto.Error != nil {
		g.Error = *dto.Error
	}
	return g, nil
}
