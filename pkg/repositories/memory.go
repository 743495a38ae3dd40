package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/repositories/models"
)

// InMemoryRepository keeps history for the lifetime of the process.
type InMemoryRepository struct {
	lock    sync.RWMutex
	nextID  int64
	games   map[int64]*models.Game
	rounds  map[int64]*models.Round
	results map[int64][]*models.RoundResult
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		games:   make(map[int64]*models.Game),
		rounds:  make(map[int64]*models.Round),
		results: make(map[int64][]*models.RoundResult),
	}
}

func (r *InMemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *InMemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *InMemoryRepository) CreateGame(ctx context.Context, players int, roundTime int64) (*models.Game, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	game := &models.Game{
		ID:          r.id(),
		PlayerCount: players,
		RoundTime:   roundTime,
		CreatedOn:   time.Now().UTC(),
	}
	r.games[game.ID] = game
	copied := *game
	return &copied, nil
}

func (r *InMemoryRepository) AddRound(ctx context.Context, gameID int64, phase types.Phase) (*models.Round, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.games[gameID]; !ok {
		return nil, &ErrNotFound{What: "game", ID: gameID}
	}
	round := &models.Round{
		ID:     r.id(),
		GameID: gameID,
		Phase:  phase,
	}
	r.rounds[round.ID] = round
	copied := *round
	return &copied, nil
}

func (r *InMemoryRepository) AddRoundResult(ctx context.Context, roundID int64, result models.RoundResult) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.rounds[roundID]; !ok {
		return &ErrNotFound{What: "round", ID: roundID}
	}
	result.ID = r.id()
	result.RoundID = roundID
	r.results[roundID] = append(r.results[roundID], &result)
	return nil
}

func (r *InMemoryRepository) GetGame(ctx context.Context, gameID int64) (*models.Game, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	game, ok := r.games[gameID]
	if !ok {
		return nil, &ErrNotFound{What: "game", ID: gameID}
	}
	copied := *game
	return &copied, nil
}

func (r *InMemoryRepository) ListGames(ctx context.Context) ([]*models.Game, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	games := make([]*models.Game, 0, len(r.games))
	for _, game := range r.games {
		copied := *game
		games = append(games, &copied)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}

func (r *InMemoryRepository) ListRounds(ctx context.Context, gameID int64) ([]*models.Round, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	rounds := make([]*models.Round, 0)
	for _, round := range r.rounds {
		if round.GameID == gameID {
			copied := *round
			rounds = append(rounds, &copied)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].ID < rounds[j].ID })
	return rounds, nil
}

func (r *InMemoryRepository) ListRoundResults(ctx context.Context, roundID int64) ([]*models.RoundResult, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	results := make([]*models.RoundResult, 0, len(r.results[roundID]))
	for _, result := range r.results[roundID] {
		copied := *result
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].PlayerID < results[j].PlayerID })
	return results, nil
}

func (r *InMemoryRepository) RemoveGame(ctx context.Context, gameID int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for id, round := range r.rounds {
		if round.GameID == gameID {
			delete(r.results, id)
			delete(r.rounds, id)
		}
	}
	delete(r.games, gameID)
	return nil
}
