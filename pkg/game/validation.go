package game

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/cbodonnell/drag/pkg/game/constants"
	"github.com/cbodonnell/drag/pkg/words"
)

// GameConfig holds the settings chosen by the host.
type GameConfig struct {
	MaxPlayers       int
	RoundTimeSeconds int64
	Language         words.Language
}

// Validate fills in defaults and rejects unplayable settings.
func (c *GameConfig) Validate() error {
	if c.MaxPlayers < constants.MinPlayers {
		return &ValidationError{Message: fmt.Sprintf("The minimum number of players is %d!", constants.MinPlayers)}
	}
	if c.MaxPlayers > constants.MaxPlayers {
		return &ValidationError{Message: fmt.Sprintf("The maximum number of players is %d!", constants.MaxPlayers)}
	}
	if c.RoundTimeSeconds == 0 {
		c.RoundTimeSeconds = constants.DefaultRoundTimeSeconds
	}
	if c.RoundTimeSeconds < constants.MinRoundTimeSeconds {
		return &ValidationError{Message: fmt.Sprintf("The minimum round time is %d seconds!", constants.MinRoundTimeSeconds)}
	}
	if c.Language == "" {
		c.Language = words.Language(constants.DefaultLanguage)
	}
	c.Language = words.ParseLanguage(string(c.Language))
	return nil
}

// ValidateName trims a player name and checks its length.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Message: "Please choose a player name"}
	}
	if utf8.RuneCountInString(name) > constants.MaxNameLength {
		return "", &ValidationError{Message: fmt.Sprintf("Player names have at most %d characters", constants.MaxNameLength)}
	}
	return name, nil
}

// NormalizeGameID upper-cases a typed game id and checks its shape.
func NormalizeGameID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) != constants.GameIDLength {
		return "", &ValidationError{Message: "Invalid game id"}
	}
	for _, r := range id {
		if r < 'A' || r > 'Z' {
			return "", &ValidationError{Message: "Invalid game id"}
		}
	}
	return id, nil
}

const gameIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateGameID returns a random id of upper-case letters.
func GenerateGameID() (string, error) {
	max := big.NewInt(int64(len(gameIDAlphabet)))
	id := make([]byte, constants.GameIDLength)
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate game id: %v", err)
		}
		id[i] = gameIDAlphabet[n.Int64()]
	}
	return string(id), nil
}
