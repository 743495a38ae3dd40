package handlers

import (
	"net/http"
	"strconv"

	"github.com/cbodonnell/drag/pkg/api/middleware"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/repositories"
	"github.com/cbodonnell/drag/pkg/repositories/models"
	"github.com/gorilla/mux"
)

// HistoryRound is a played round with what every slot ended up holding.
type HistoryRound struct {
	ID      int64           `json:"id"`
	Phase   types.Phase     `json:"phase"`
	Results []HistoryResult `json:"results"`
}

type HistoryResult struct {
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name"`
	Word       string `json:"word"`
	Board      string `json:"board"`
}

type HistoryGame struct {
	*models.Game
	Rounds []HistoryRound `json:"rounds"`
}

func HandleListHistory(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := repository.ListGames(r.Context())
		if err != nil {
			log.Error("failed to list games: %v", err)
			http.Error(w, "Failed to list games", http.StatusInternalServerError)
			return
		}
		log.Debug("%s listed %d recorded games", reader(r), len(games))
		writeJSON(w, games)
	}
}

// reader names who is reading the history in log entries.
func reader(r *http.Request) string {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return "unauthenticated reader"
	}
	return "user " + claims.UID
}

func HandleGetHistory(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := strconv.ParseInt(mux.Vars(r)["gameID"], 10, 64)
		if err != nil {
			http.Error(w, "Failed to parse gameID", http.StatusBadRequest)
			return
		}
		g, err := repository.GetGame(r.Context(), gameID)
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Game not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get game %d: %v", gameID, err)
			http.Error(w, "Failed to get game", http.StatusInternalServerError)
			return
		}

		rounds, err := repository.ListRounds(r.Context(), gameID)
		if err != nil {
			log.Error("failed to list rounds of game %d: %v", gameID, err)
			http.Error(w, "Failed to list rounds", http.StatusInternalServerError)
			return
		}
		out := HistoryGame{Game: g, Rounds: make([]HistoryRound, 0, len(rounds))}
		for _, round := range rounds {
			results, err := repository.ListRoundResults(r.Context(), round.ID)
			if err != nil {
				log.Error("failed to list results of round %d: %v", round.ID, err)
				http.Error(w, "Failed to list results", http.StatusInternalServerError)
				return
			}
			hr := HistoryRound{ID: round.ID, Phase: round.Phase, Results: make([]HistoryResult, 0, len(results))}
			for _, result := range results {
				hr.Results = append(hr.Results, HistoryResult{
					PlayerID:   result.PlayerID,
					PlayerName: result.PlayerName,
					Word:       result.Word,
					Board:      result.Board.Encode(),
				})
			}
			out.Rounds = append(out.Rounds, hr)
		}
		log.Debug("%s read recorded game %d", reader(r), gameID)
		writeJSON(w, out)
	}
}
