package handlers

import (
	"context"
	"net/http"

	"github.com/cbodonnell/drag/pkg/game"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// WatchEvent is one websocket message of a game watch.
type WatchEvent struct {
	Record  *types.GameRecordDTO `json:"record,omitempty"`
	Deleted bool                 `json:"deleted,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWatchGame streams every version of a game record over a websocket
// until the record is deleted or the client goes away.
func HandleWatchGame(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := game.NormalizeGameID(mux.Vars(r)["gameID"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := s.Get(r.Context(), id); err != nil {
			if store.IsNotFound(err) {
				http.Error(w, "Game not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get game %s: %v", id, err)
			http.Error(w, "Failed to get game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		log.Debug("Watching game %s for %s", id, conn.RemoteAddr().String())
		watchGame(r.Context(), s, id, conn)
	}
}

func watchGame(ctx context.Context, s store.Store, id string, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		conn.Close()
	}()

	// the client never sends anything, reading only notices it leaving
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("Watcher of game %s left: %v", id, err)
				}
				return
			}
		}
	}()

	sub, err := s.Subscribe(ctx, id)
	if err != nil {
		log.Error("Failed to subscribe to game %s: %v", id, err)
		closeWS(conn, websocket.CloseInternalServerErr, "subscription failed")
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Updates():
			switch {
			case !ok:
				return
			case ev.Err != nil:
				log.Warn("Watch of game %s failed: %v", id, ev.Err)
				closeWS(conn, websocket.CloseInternalServerErr, "subscription failed")
				return
			case ev.Deleted:
				if err := conn.WriteJSON(WatchEvent{Deleted: true}); err != nil {
					return
				}
				closeWS(conn, websocket.CloseNormalClosure, "game deleted")
				return
			default:
				if err := conn.WriteJSON(WatchEvent{Record: types.GameRecordToDTO(ev.Record)}); err != nil {
					log.Debug("Failed to write to watcher of game %s: %v", id, err)
					return
				}
			}
		}
	}
}

func closeWS(conn *websocket.Conn, code int, reason string) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
