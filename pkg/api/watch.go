package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cbodonnell/drag/pkg/api/handlers"
	"github.com/cbodonnell/drag/pkg/game/types"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WatchGame follows a game through the API server at baseURL, calling fn
// with every version of its record. It returns nil once the game is deleted
// and stops early with fn's error.
func WatchGame(ctx context.Context, baseURL string, gameID string, fn func(*types.GameRecord) error) error {
	url := strings.TrimSuffix(baseURL, "/") + "/games/" + gameID + "/watch"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %v", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var ev handlers.WatchEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("failed to read from watch of game %s: %w", gameID, err)
		}
		if ev.Deleted {
			return nil
		}
		if ev.Record == nil {
			return errors.New("watch event carries no record")
		}
		record, err := types.GameRecordFromDTO(ev.Record)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}
