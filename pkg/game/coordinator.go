package game

import (
	"context"
	"time"

	"github.com/cbodonnell/drag/pkg/game/constants"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/repositories"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/cbodonnell/drag/pkg/waiter"
	"github.com/cbodonnell/drag/pkg/words"
)

// WordSource hands out the words players draw when a game opens with drawing.
type WordSource interface {
	RandomWord(ctx context.Context, lang words.Language) (words.Word, error)
}

// CleanupScheduler removes a player from a game in the background, retrying
// until the store accepts it.
type CleanupScheduler interface {
	Schedule(gameID string, playerID int) error
}

// Coordinator creates and joins games on behalf of one client. Every game it
// enters is played by a Session.
type Coordinator struct {
	store        store.Store
	registry     *waiter.Registry
	words        WordSource
	history      repositories.Repository
	cleanup      CleanupScheduler
	scheduler    Scheduler
	stepTimeout  time.Duration
	phaseTimeout time.Duration
	lobbyTimeout time.Duration
}

type NewCoordinatorOptions struct {
	Store store.Store
	// Registry defaults to a new registry on Store. It must not be shared with
	// another client of the same game.
	Registry *waiter.Registry
	Words    WordSource
	// History is optional. Played rounds are recorded into it.
	History repositories.Repository
	// Cleanup is optional. Without it players leave inline when a game ends.
	Cleanup      CleanupScheduler
	Scheduler    Scheduler
	StepTimeout  time.Duration
	PhaseTimeout time.Duration
	LobbyTimeout time.Duration
}

func NewCoordinator(opts NewCoordinatorOptions) *Coordinator {
	c := &Coordinator{
		store:        opts.Store,
		registry:     opts.Registry,
		words:        opts.Words,
		history:      opts.History,
		cleanup:      opts.Cleanup,
		scheduler:    opts.Scheduler,
		stepTimeout:  opts.StepTimeout,
		phaseTimeout: opts.PhaseTimeout,
		lobbyTimeout: opts.LobbyTimeout,
	}
	if c.registry == nil {
		c.registry = waiter.NewRegistry(opts.Store)
	}
	if c.scheduler == nil {
		c.scheduler = RealScheduler{}
	}
	if c.stepTimeout <= 0 {
		c.stepTimeout = constants.StepTimeout
	}
	if c.phaseTimeout <= 0 {
		c.phaseTimeout = 2 * c.stepTimeout
	}
	if c.lobbyTimeout <= 0 {
		c.lobbyTimeout = constants.LobbyTimeout
	}
	return c
}

// Create opens a new lobby hosted by name and starts playing it.
func (c *Coordinator) Create(ctx context.Context, name string, config GameConfig, observer Observer) (*Session, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	id, err := GenerateGameID()
	if err != nil {
		return nil, err
	}

	record := types.NewGameRecord(id, config.MaxPlayers, config.RoundTimeSeconds, string(config.Language))
	record.JoinedPlayers[types.HostSlot] = &types.PlayerInfo{Name: name, Slot: types.HostSlot}
	err = c.store.Transact(ctx, id, func(tx store.Tx) error {
		return tx.Create(record)
	})
	if store.IsAlreadyExists(err) {
		return nil, &ConflictError{Message: "Game ID collision"}
	}
	if err != nil {
		return nil, err
	}
	log.Info("Created game %s for %d players", id, config.MaxPlayers)

	player := types.LocalPlayer{Name: name, PlayerID: types.HostSlot, BlockID: types.HostSlot}
	return c.launch(record, player, observer), nil
}

// Join takes the lowest free slot of an open lobby and starts playing it.
func (c *Coordinator) Join(ctx context.Context, gameID string, name string, observer Observer) (*Session, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	gameID, err = NormalizeGameID(gameID)
	if err != nil {
		return nil, err
	}

	var joined *types.GameRecord
	var slot int
	err = c.store.Transact(ctx, gameID, func(tx store.Tx) error {
		record, err := tx.Get()
		if err != nil {
			return err
		}
		s, err := FindAvailableSlot(record, name)
		if err != nil {
			return err
		}
		update := store.SetPlayer(s, &types.PlayerInfo{Name: name, Slot: s})
		if err := tx.Update(update); err != nil {
			return err
		}
		update.Apply(record)
		joined, slot = record, s
		return nil
	})
	if store.IsNotFound(err) {
		return nil, &NotFoundError{GameID: gameID, Err: err}
	}
	if err != nil {
		return nil, err
	}
	log.Info("Joined game %s in slot %d", gameID, slot)

	player := types.LocalPlayer{Name: name, PlayerID: slot, BlockID: slot}
	return c.launch(joined, player, observer), nil
}

// FindAvailableSlot returns the slot a new player called name would take.
// Slot 0 belongs to the creator and is never handed out again.
func FindAvailableSlot(record *types.GameRecord, name string) (int, error) {
	switch {
	case record.Phase.IsTerminal():
		return 0, &ConflictError{Message: "Game unavailable!"}
	case record.Phase != types.PhaseWaiting:
		return 0, &ConflictError{Message: "Game already started!"}
	case record.IsFull():
		return 0, &ConflictError{Message: "Game is already full"}
	case record.HasPlayerNamed(name):
		return 0, &ConflictError{Message: "A player with the same name already exists"}
	}
	for slot := types.HostSlot + 1; slot < record.MaxPlayers; slot++ {
		if record.Player(slot) == nil {
			return slot, nil
		}
	}
	return 0, &ConflictError{Message: "Game is already full"}
}

func (c *Coordinator) launch(record *types.GameRecord, player types.LocalPlayer, observer Observer) *Session {
	if observer == nil {
		observer = NopObserver{}
	}
	player.RoundStart = c.scheduler.Now()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		coordinator: c,
		gameID:      record.ID,
		observer:    observer,
		replica:     newReplica(record, player),
		logger:      log.With("game_id", record.ID).With("player_id", player.PlayerID),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	c.registry.Acquire(record.ID)
	go s.run(ctx)
	return s
}
