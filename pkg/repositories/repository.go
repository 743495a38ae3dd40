package repositories

import (
	"context"

	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/repositories/models"
)

// Repository stores the local history of played games.
type Repository interface {
	Close(ctx context.Context) error
	CreateGame(ctx context.Context, players int, roundTime int64) (*models.Game, error)
	AddRound(ctx context.Context, gameID int64, phase types.Phase) (*models.Round, error)
	AddRoundResult(ctx context.Context, roundID int64, result models.RoundResult) error
	GetGame(ctx context.Context, gameID int64) (*models.Game, error)
	ListGames(ctx context.Context) ([]*models.Game, error)
	ListRounds(ctx context.Context, gameID int64) ([]*models.Round, error)
	ListRoundResults(ctx context.Context, roundID int64) ([]*models.RoundResult, error)
	// RemoveGame deletes a game with its rounds and results.
	RemoveGame(ctx context.Context, gameID int64) error
}
