package game

import (
	"time"

	"github.com/cbodonnell/drag/pkg/game/types"
)

// RoundView describes a round as it starts for the local player.
type RoundView struct {
	GameID string
	Round  int
	Phase  types.Phase
	Player types.LocalPlayer
	// Block is what the local player starts the round with: the word to
	// draw, or the drawing to guess.
	Block    types.BlockState
	Deadline time.Time
}

type GameSummary struct {
	GameID    string
	Rounds    int
	HistoryID int64
}

// Observer is told about round starts and the end of the game. Callbacks run
// on the session goroutine and must not block for long. RoundStarted runs
// before the round timer is armed, so input given from it always counts.
type Observer interface {
	RoundStarted(s *Session, view RoundView)
	GameFinished(summary GameSummary)
	GameFailed(message string)
}

type NopObserver struct{}

func (NopObserver) RoundStarted(*Session, RoundView) {}
func (NopObserver) GameFinished(GameSummary)         {}
func (NopObserver) GameFailed(string)                {}
