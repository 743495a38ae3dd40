package constants

import "time"

const (
	// MinPlayers is the smallest number of players a game can be created with
	MinPlayers int = 5
	// MaxPlayers bounds lobby size
	MaxPlayers int = 12
	// GameIDLength is the number of letters in a game id
	GameIDLength int = 6
	// MaxNameLength is the longest accepted player name
	MaxNameLength int = 20

	// DefaultRoundTimeSeconds is used when a game is created without a round time
	DefaultRoundTimeSeconds int64 = 60
	// MinRoundTimeSeconds bounds the round time from below
	MinRoundTimeSeconds int64 = 5

	// DefaultLanguage is the fallback word language
	DefaultLanguage string = "en"

	// StepTimeout bounds every wait between two protocol steps
	StepTimeout time.Duration = 3 * time.Second
	// PhaseTimeout bounds waits on the host's phase writes, which happen one
	// step after the host's own wait
	PhaseTimeout time.Duration = 2 * StepTimeout
	// LobbyTimeout bounds the wait for the lobby to fill up
	LobbyTimeout time.Duration = 2 * time.Minute
)

const (
	MessagePlayerQuit      = "A player has quit the game!"
	MessageHostLeft        = "The host has left the game!"
	MessagePlayerAway      = "The game was terminated due to a player being away"
	MessageTimeout         = "Timed out waiting for the other players!"
	MessageUnexpectedError = "An unexpected error has occurred!"
)
