package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to connStr and applies the history
// migrations. The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %v", err)
	}
	log.Info("Connected to %s as %s", database, username)

	migrations, err := readMigrations("postgres")
	if err != nil {
		pool.Close()
		return nil, err
	}
	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateGame(ctx context.Context, players int, roundTime int64) (*models.Game, error) {
	game := &models.Game{
		PlayerCount: players,
		RoundTime:   roundTime,
		CreatedOn:   time.Now().UTC().Truncate(time.Microsecond),
	}
	q := `
	INSERT INTO games (player_count, round_time, created_on)
	VALUES ($1, $2, $3) RETURNING game_id;
	`
	if err := r.pool.QueryRow(ctx, q, players, roundTime, game.CreatedOn).Scan(&game.ID); err != nil {
		return nil, fmt.Errorf("failed to insert game: %v", err)
	}

	return game, nil
}

func (r *PostgresRepository) AddRound(ctx context.Context, gameID int64, phase types.Phase) (*models.Round, error) {
	round := &models.Round{
		GameID: gameID,
		Phase:  phase,
	}
	q := `
	INSERT INTO rounds (game_id, phase) VALUES ($1, $2) RETURNING round_id;
	`
	if err := r.pool.QueryRow(ctx, q, gameID, string(phase)).Scan(&round.ID); err != nil {
		return nil, fmt.Errorf("failed to insert round: %v", err)
	}

	return round, nil
}

func (r *PostgresRepository) AddRoundResult(ctx context.Context, roundID int64, result models.RoundResult) error {
	q := `
	INSERT INTO results (round_id, player_id, player_name, word, board)
	VALUES ($1, $2, $3, $4, $5);
	`
	_, err := r.pool.Exec(ctx, q, roundID, result.PlayerID, result.PlayerName, result.Word, result.Board.Encode())
	if err != nil {
		return fmt.Errorf("failed to insert round result: %v", err)
	}

	return nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, gameID int64) (*models.Game, error) {
	q := `
	SELECT game_id, player_count, round_time, created_on FROM games WHERE game_id = $1;
	`
	game := &models.Game{}
	err := r.pool.QueryRow(ctx, q, gameID).Scan(&game.ID, &game.PlayerCount, &game.RoundTime, &game.CreatedOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{What: "game", ID: gameID}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}
	game.CreatedOn = game.CreatedOn.UTC()

	return game, nil
}

func (r *PostgresRepository) ListGames(ctx context.Context) ([]*models.Game, error) {
	rows, err := r.pool.Query(ctx, "SELECT game_id, player_count, round_time, created_on FROM games ORDER BY game_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %v", err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game := &models.Game{}
		if err := rows.Scan(&game.ID, &game.PlayerCount, &game.RoundTime, &game.CreatedOn); err != nil {
			return nil, fmt.Errorf("failed to scan game: %v", err)
		}
		game.CreatedOn = game.CreatedOn.UTC()
		games = append(games, game)
	}

	return games, rows.Err()
}

func (r *PostgresRepository) ListRounds(ctx context.Context, gameID int64) ([]*models.Round, error) {
	rows, err := r.pool.Query(ctx, "SELECT round_id, game_id, phase FROM rounds WHERE game_id = $1 ORDER BY round_id", gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %v", err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		round := &models.Round{}
		var phase string
		if err := rows.Scan(&round.ID, &round.GameID, &phase); err != nil {
			return nil, fmt.Errorf("failed to scan round: %v", err)
		}
		round.Phase = types.Phase(phase)
		rounds = append(rounds, round)
	}

	return rounds, rows.Err()
}

func (r *PostgresRepository) ListRoundResults(ctx context.Context, roundID int64) ([]*models.RoundResult, error) {
	q := `
	SELECT result_id, round_id, player_id, player_name, word, board
	FROM results WHERE round_id = $1 ORDER BY player_id;
	`
	rows, err := r.pool.Query(ctx, q, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query round results: %v", err)
	}
	defer rows.Close()

	results := make([]*models.RoundResult, 0)
	for rows.Next() {
		result := &models.RoundResult{}
		var board string
		if err := rows.Scan(&result.ID, &result.RoundID, &result.PlayerID, &result.PlayerName, &result.Word, &board); err != nil {
			return nil, fmt.Errorf("failed to scan round result: %v", err)
		}
		if result.Board, err = drawing.Decode(board); err != nil {
			return nil, fmt.Errorf("failed to decode board of result %d: %v", result.ID, err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

func (r *PostgresRepository) RemoveGame(ctx context.Context, gameID int64) error {
	// rounds and results go with the game through ON DELETE CASCADE
	if _, err := r.pool.Exec(ctx, "DELETE FROM games WHERE game_id = $1", gameID); err != nil {
		return fmt.Errorf("failed to remove game: %v", err)
	}

	return nil
}
