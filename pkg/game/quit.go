package game

import (
	"context"

	"github.com/cbodonnell/drag/pkg/game/constants"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/store"
)

// QuitGame removes a player from a game. Quitting a slot that is already
// vacant does nothing, so the call can be repeated safely.
//   - during rounds the game moves to ERROR so every peer stops;
//   - the last player deletes the record;
//   - a host leaving its lobby closes it for everyone;
//   - anyone else just vacates the slot.
func QuitGame(ctx context.Context, s store.Store, gameID string, playerID int) error {
	return removePlayer(ctx, s, gameID, playerID, constants.MessagePlayerQuit, false)
}

// removePlayer vacates playerID's slot. With started set, a game whose
// lobby has already filled up is failed with message as it would be during
// a round.
func removePlayer(ctx context.Context, s store.Store, gameID string, playerID int, message string, started bool) error {
	return s.Transact(ctx, gameID, func(tx store.Tx) error {
		record, err := tx.Get()
		if err != nil {
			return err
		}
		if record.Player(playerID) == nil {
			return nil
		}
		vacate := store.SetPlayer(playerID, nil)
		switch {
		case record.Phase.IsActive(), started && record.Phase == types.PhaseWaiting:
			return tx.Update(store.SetPhase(types.PhaseError), store.SetError(message), vacate)
		case record.OccupiedCount() == 1:
			return tx.Delete()
		case record.Phase == types.PhaseWaiting && playerID == types.HostSlot:
			return tx.Update(store.SetPhase(types.PhaseError), store.SetError(constants.MessageHostLeft), vacate)
		default:
			return tx.Update(vacate)
		}
	})
}

// Quitter runs QuitGame for background cleanup jobs.
type Quitter struct {
	Store store.Store
}

func (q Quitter) Quit(ctx context.Context, gameID string, playerID int) error {
	return QuitGame(ctx, q.Store, gameID, playerID)
}

// AvailableLobbies lists the games that can be joined.
func AvailableLobbies(ctx context.Context, s store.Store) ([]*types.GameRecord, error) {
	lobbies, err := s.ListLobbies(ctx)
	if err != nil {
		return nil, err
	}
	joinable := lobbies[:0]
	for _, lobby := range lobbies {
		if lobby.IsJoinable() {
			joinable = append(joinable, lobby)
		}
	}
	return joinable, nil
}
