package types

import (
	"testing"
	"time"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationClosesCycle(t *testing.T) {
	for maxPlayers := 5; maxPlayers <= 12; maxPlayers++ {
		for playerID := 0; playerID < maxPlayers; playerID++ {
			p := LocalPlayer{PlayerID: playerID, BlockID: playerID}
			rounds := 1
			for !p.HasFinished(maxPlayers) {
				p = p.Rotate(maxPlayers, time.Time{})
				rounds++
			}
			assert.Equal(t, maxPlayers, rounds, "players=%d id=%d", maxPlayers, playerID)
			// one more rotation returns to the starting slot
			assert.Equal(t, playerID, p.Rotate(maxPlayers, time.Time{}).BlockID)
		}
	}
}

func TestOpeningPhase(t *testing.T) {
	assert.Equal(t, PhasePickWord, OpeningPhase(5))
	assert.Equal(t, PhaseDrawing, OpeningPhase(6))
	assert.Equal(t, PhaseDrawing, PhasePickWord.Next())
	assert.Equal(t, PhaseGuessing, PhaseDrawing.Next())
	assert.Equal(t, PhaseDrawing, PhaseGuessing.Next())
}

func TestOccupiedCountIgnoresVacatedSlots(t *testing.T) {
	g := NewGameRecord("ABCDEF", 5, 30, "en")
	g.JoinedPlayers[0] = &PlayerInfo{Name: "host", Slot: 0}
	g.JoinedPlayers[1] = nil
	g.JoinedPlayers[2] = &PlayerInfo{Name: "bob", Slot: 2}

	assert.Equal(t, 2, g.OccupiedCount())
	assert.Equal(t, []int{0, 2}, g.Occupied())
	assert.True(t, g.IsJoinable())
	assert.True(t, g.HasPlayerNamed("bob"))
	assert.False(t, g.HasPlayerNamed("alice"))
}

func TestCopyIsDeep(t *testing.T) {
	g := NewGameRecord("ABCDEF", 5, 30, "en")
	g.JoinedPlayers[0] = &PlayerInfo{Name: "host", Slot: 0}
	g.BlockStates[0] = BlockState{Word: "cat"}

	c := g.Copy()
	c.JoinedPlayers[0].Name = "changed"
	c.BlockStates[0] = BlockState{Word: "dog"}

	assert.Equal(t, "host", g.JoinedPlayers[0].Name)
	assert.Equal(t, "cat", g.BlockStates[0].Word)
}

func TestRecordDTOMapping(t *testing.T) {
	g := NewGameRecord("ABCDEF", 5, 30, "pt")
	g.Phase = PhaseError
	g.Error = "A player has quit the game!"
	g.JoinedPlayers[0] = &PlayerInfo{Name: "host", Slot: 0}
	g.JoinedPlayers[1] = nil
	g.BlockStates[0] = BlockState{
		OwnerSlot: 0,
		Word:      "cat",
		Board:     drawing.NewBoard(drawing.Stroke{{X: 0, Y: 0}, {X: 1, Y: 1}}),
		Completed: true,
	}

	dto := GameRecordToDTO(g)
	assert.Nil(t, dto.JoinedPlayers["1"])
	assert.Equal(t, "(0,0):(1,1):;", dto.BlockStates["0"].Board)

	back, err := GameRecordFromDTO(dto)
	require.NoError(t, err)
	assert.Equal(t, g.Phase, back.Phase)
	assert.Equal(t, g.Error, back.Error)
	assert.Contains(t, back.JoinedPlayers, 1)
	assert.Nil(t, back.JoinedPlayers[1])
	assert.True(t, back.BlockStates[0].Board.Equal(g.BlockStates[0].Board))

	dto.Phase = "PAUSED"
	_, err = GameRecordFromDTO(dto)
	assert.Error(t, err)
}
