package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cbodonnell/drag/pkg/game"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/gorilla/mux"
)

// Lobby is an open game as listed by the API.
type Lobby struct {
	ID               string   `json:"id"`
	MaxPlayers       int      `json:"maxPlayers"`
	RoundTimeSeconds int64    `json:"roundTimeSeconds"`
	Language         string   `json:"language"`
	Players          []string `json:"players"`
}

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func HandleListLobbies(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := game.AvailableLobbies(r.Context(), s)
		if err != nil {
			log.Error("failed to list lobbies: %v", err)
			http.Error(w, "Failed to list lobbies", http.StatusInternalServerError)
			return
		}
		lobbies := make([]Lobby, 0, len(records))
		for _, record := range records {
			lobby := Lobby{
				ID:               record.ID,
				MaxPlayers:       record.MaxPlayers,
				RoundTimeSeconds: record.RoundTimeSeconds,
				Language:         record.Language,
				Players:          make([]string, 0, record.MaxPlayers),
			}
			for _, slot := range record.Occupied() {
				lobby.Players = append(lobby.Players, record.Player(slot).Name)
			}
			lobbies = append(lobbies, lobby)
		}
		writeJSON(w, lobbies)
	}
}

func HandleGetGame(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := game.NormalizeGameID(mux.Vars(r)["gameID"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		record, err := s.Get(r.Context(), id)
		if err != nil {
			if store.IsNotFound(err) {
				http.Error(w, "Game not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get game %s: %v", id, err)
			http.Error(w, "Failed to get game", http.StatusInternalServerError)
			return
		}
		writeJSON(w, types.GameRecordToDTO(record))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
