package models

import (
	"time"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game/types"
)

// Game is a locally recorded game.
type Game struct {
	ID          int64     `json:"id"`
	PlayerCount int       `json:"player_count"`
	RoundTime   int64     `json:"round_time"`
	CreatedOn   time.Time `json:"created_on"`
}

type Round struct {
	ID     int64       `json:"id"`
	GameID int64       `json:"game_id"`
	Phase  types.Phase `json:"phase"`
}

// RoundResult is what one slot held at the end of a round.
type RoundResult struct {
	ID         int64         `json:"id"`
	RoundID    int64         `json:"round_id"`
	PlayerID   int           `json:"player_id"`
	PlayerName string        `json:"player_name"`
	Word       string        `json:"word"`
	Board      drawing.Board `json:"-"`
}
