package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cbodonnell/drag/pkg/api/handlers"
	authproviders "github.com/cbodonnell/drag/pkg/auth/providers"
	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/repositories"
	"github.com/cbodonnell/drag/pkg/repositories/models"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthProvider struct {
	mock.Mock
}

func (m *mockAuthProvider) VerifyToken(ctx context.Context, token string) (*authproviders.TokenClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*authproviders.TokenClaims)
	return claims, args.Error(1)
}

func seed(t *testing.T, s store.Store, id string, phase types.Phase, names ...string) {
	t.Helper()
	record := types.NewGameRecord(id, 5, 60, "en")
	record.Phase = phase
	for slot, name := range names {
		record.JoinedPlayers[slot] = &types.PlayerInfo{Name: name, Slot: slot}
	}
	require.NoError(t, s.Transact(context.Background(), id, func(tx store.Tx) error {
		return tx.Create(record)
	}))
}

func TestLobbiesAndGames(t *testing.T) {
	s := store.NewInMemoryStore()
	seed(t, s, "AAAAAA", types.PhaseWaiting, "ana", "bruno")
	seed(t, s, "BBBBBB", types.PhaseDrawing, "a", "b", "c", "d", "e")

	server := httptest.NewServer(NewRouter(NewAPIServerOptions{Store: s}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/lobbies")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var lobbies []handlers.Lobby
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lobbies))
	require.Len(t, lobbies, 1)
	assert.Equal(t, "AAAAAA", lobbies[0].ID)
	assert.ElementsMatch(t, []string{"ana", "bruno"}, lobbies[0].Players)

	resp, err = http.Get(server.URL + "/games/bbbbbb")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dto types.GameRecordDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dto))
	assert.Equal(t, "BBBBBB", dto.ID)
	assert.Equal(t, string(types.PhaseDrawing), dto.Phase)

	for path, code := range map[string]int{
		"/games/CCCCCC": http.StatusNotFound,
		"/games/12":     http.StatusBadRequest,
		"/history":      http.StatusNotFound,
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, code, resp.StatusCode, path)
	}
}

func TestWatchGame(t *testing.T) {
	s := store.NewInMemoryStore()
	seed(t, s, "ABCDEF", types.PhaseWaiting, "ana")

	server := httptest.NewServer(NewRouter(NewAPIServerOptions{Store: s}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seen := make(chan types.Phase, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchGame(ctx, server.URL, "ABCDEF", func(record *types.GameRecord) error {
			seen <- record.Phase
			return nil
		})
	}()

	assert.Equal(t, types.PhaseWaiting, <-seen)
	require.NoError(t, s.Patch(ctx, "ABCDEF", store.SetPhase(types.PhaseError)))
	assert.Equal(t, types.PhaseError, <-seen)
	require.NoError(t, s.Transact(ctx, "ABCDEF", func(tx store.Tx) error {
		return tx.Delete()
	}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watch did not end after the game was deleted")
	}
}

func TestWatchGameStopsOnCallbackError(t *testing.T) {
	s := store.NewInMemoryStore()
	seed(t, s, "ABCDEF", types.PhaseWaiting, "ana")

	server := httptest.NewServer(NewRouter(NewAPIServerOptions{Store: s}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stop := errors.New("stop")
	err := WatchGame(ctx, server.URL, "ABCDEF", func(*types.GameRecord) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)

	err = WatchGame(ctx, server.URL, "ZZZZZZ", func(*types.GameRecord) error { return nil })
	assert.Error(t, err)
}

func TestHistoryRequiresToken(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewInMemoryRepository()
	g, err := repo.CreateGame(ctx, 5, 60)
	require.NoError(t, err)
	round, err := repo.AddRound(ctx, g.ID, types.PhaseDrawing)
	require.NoError(t, err)
	board := drawing.NewBoard(drawing.Stroke{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}})
	require.NoError(t, repo.AddRoundResult(ctx, round.ID, models.RoundResult{
		PlayerID:   0,
		PlayerName: "ana",
		Word:       "cat",
		Board:      board,
	}))

	auth := &mockAuthProvider{}
	auth.On("VerifyToken", "good").Return(&authproviders.TokenClaims{UID: "user"}, nil)
	auth.On("VerifyToken", "bad").Return(nil, errors.New("expired"))

	server := httptest.NewServer(NewRouter(NewAPIServerOptions{
		Store:        store.NewInMemoryStore(),
		History:      repo,
		AuthProvider: auth,
	}))
	defer server.Close()

	get := func(path, token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := get("/history", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get("/history", "bad")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get("/history", "good")
	var games []models.Game
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&games))
	resp.Body.Close()
	require.Len(t, games, 1)
	assert.Equal(t, g.ID, games[0].ID)

	resp = get("/history/"+strconv.FormatInt(g.ID, 10), "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history handlers.HistoryGame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	require.Len(t, history.Rounds, 1)
	require.Len(t, history.Rounds[0].Results, 1)
	result := history.Rounds[0].Results[0]
	assert.Equal(t, "cat", result.Word)
	decoded, err := drawing.Decode(result.Board)
	require.NoError(t, err)
	assert.True(t, board.Equal(decoded))

	resp = get("/history/999", "good")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	auth.AssertExpectations(t)
}
