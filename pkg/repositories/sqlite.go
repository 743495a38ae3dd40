package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	migrations, err := readMigrations("sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateGame(ctx context.Context, players int, roundTime int64) (*models.Game, error) {
	createdOn := time.Now().UTC()
	q := `
	INSERT INTO games (player_count, round_time, created_on)
	VALUES (?, ?, ?);
	`
	res, err := r.db.ExecContext(ctx, q, players, roundTime, createdOn.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to insert game: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get game id: %v", err)
	}

	return &models.Game{
		ID:          id,
		PlayerCount: players,
		RoundTime:   roundTime,
		CreatedOn:   time.UnixMilli(createdOn.UnixMilli()).UTC(),
	}, nil
}

func (r *SQLiteRepository) AddRound(ctx context.Context, gameID int64, phase types.Phase) (*models.Round, error) {
	q := `
	INSERT INTO rounds (game_id, phase) VALUES (?, ?);
	`
	res, err := r.db.ExecContext(ctx, q, gameID, string(phase))
	if err != nil {
		return nil, fmt.Errorf("failed to insert round: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get round id: %v", err)
	}

	return &models.Round{
		ID:     id,
		GameID: gameID,
		Phase:  phase,
	}, nil
}

func (r *SQLiteRepository) AddRoundResult(ctx context.Context, roundID int64, result models.RoundResult) error {
	q := `
	INSERT INTO results (round_id, player_id, player_name, word, board)
	VALUES (?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, roundID, result.PlayerID, result.PlayerName, result.Word, result.Board.Encode())
	if err != nil {
		return fmt.Errorf("failed to insert round result: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) GetGame(ctx context.Context, gameID int64) (*models.Game, error) {
	q := `
	SELECT game_id, player_count, round_time, created_on FROM games WHERE game_id = ?;
	`
	game, err := scanSQLiteGame(r.db.QueryRowContext(ctx, q, gameID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{What: "game", ID: gameID}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	return game, nil
}

func (r *SQLiteRepository) ListGames(ctx context.Context) ([]*models.Game, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT game_id, player_count, round_time, created_on FROM games ORDER BY game_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %v", err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game, err := scanSQLiteGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %v", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

func (r *SQLiteRepository) ListRounds(ctx context.Context, gameID int64) ([]*models.Round, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT round_id, game_id, phase FROM rounds WHERE game_id = ? ORDER BY round_id", gameID)
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

func (r *SQLiteRepository) ListRoundResults(ctx context.Context, roundID int64) ([]*models.RoundResult, error) {
	q := `
	SELECT result_id, round_id, player_id, player_name, word, board
	FROM results WHERE round_id = ? ORDER BY player_id;
	`
	rows, err := r.db.QueryContext(ctx, q, roundID)
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

func (r *SQLiteRepository) RemoveGame(ctx context.Context, gameID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	statements := []string{
		"DELETE FROM results WHERE round_id IN (SELECT round_id FROM rounds WHERE game_id = ?)",
		"DELETE FROM rounds WHERE game_id = ?",
		"DELETE FROM games WHERE game_id = ?",
	}
	for _, q := range statements {
		if _, err := tx.ExecContext(ctx, q, gameID); err != nil {
			return fmt.Errorf("failed to remove game: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteGame(row rowScanner) (*models.Game, error) {
	game := &models.Game{}
	var createdOn int64
	if err := row.Scan(&game.ID, &game.PlayerCount, &game.RoundTime, &createdOn); err != nil {
		return nil, err
	}
	game.CreatedOn = time.UnixMilli(createdOn).UTC()
	return game, nil
}
