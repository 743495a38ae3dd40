package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game/constants"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/repositories/models"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/cbodonnell/drag/pkg/waiter"
	"github.com/cbodonnell/drag/pkg/words"
)

// Session plays one game for the local player, from the lobby to FINISHED or
// ERROR. Its methods are safe for concurrent use.
type Session struct {
	coordinator *Coordinator
	gameID      string
	observer    Observer
	replica     *Replica
	logger      *log.Logger

	// owned by the run goroutine
	watch     *waiter.Watch
	started   bool
	historyID int64
	rounds    int

	once   sync.Once
	lock   sync.Mutex
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Session) GameID() string {
	return s.gameID
}

// Done is closed once the session has ended and released its resources.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session ended: nil when the game finished, ErrQuit
// after Quit, a *GameError when another player failed the game.
func (s *Session) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

func (s *Session) Snapshot() Snapshot {
	return s.replica.snapshot(s.coordinator.scheduler.Now())
}

// Quit leaves the game and waits for the session to end.
func (s *Session) Quit(ctx context.Context) error {
	s.terminate(ErrQuit)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitWord sets the word of the current picking or guessing round.
func (s *Session) SubmitWord(word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return &ValidationError{Message: "Please type a word"}
	}
	return s.replica.edit(func(phase types.Phase, block *types.BlockState) error {
		if !phase.RequiresWord() {
			return ErrInputClosed
		}
		block.Word = word
		return nil
	})
}

// AddStroke appends a stroke to the current drawing. Points must lie within
// the normalized board.
func (s *Session) AddStroke(stroke drawing.Stroke) error {
	if err := stroke.Validate(); err != nil {
		return &ValidationError{Message: "Strokes must stay inside the board"}
	}
	return s.replica.edit(func(phase types.Phase, block *types.BlockState) error {
		if phase != types.PhaseDrawing {
			return ErrInputClosed
		}
		block.Board = block.Board.WithStroke(stroke)
		return nil
	})
}

func (s *Session) ResetBoard() error {
	return s.replica.edit(func(phase types.Phase, block *types.BlockState) error {
		if phase != types.PhaseDrawing {
			return ErrInputClosed
		}
		block.Board = drawing.NewBoard()
		return nil
	})
}

// terminate records the first terminal outcome and stops the run loop.
func (s *Session) terminate(err error) {
	s.once.Do(func() {
		s.lock.Lock()
		s.err = err
		s.lock.Unlock()
		s.cancel()
	})
}

func (s *Session) run(ctx context.Context) {
	err := s.play(ctx)
	s.terminate(err)
	s.finish()
}

func (s *Session) play(ctx context.Context) error {
	phase, block, err := s.configure(ctx)
	if err != nil {
		return err
	}
	c := s.coordinator
	record := s.replica.Record()
	roundTime := time.Duration(record.RoundTimeSeconds) * time.Second
	for {
		s.rounds++
		player := s.replica.Player()
		s.replica.openRound(phase, block)
		s.logger.Debug("Round %d (%s) started on slot %d", s.rounds, phase, player.BlockID)
		s.observer.RoundStarted(s, RoundView{
			GameID:   s.gameID,
			Round:    s.rounds,
			Phase:    phase,
			Player:   player,
			Block:    block,
			Deadline: player.RoundStart.Add(roundTime),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.scheduler.After(roundTime):
		}

		next, nextBlock, finished, err := s.advanceRound(ctx, phase)
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
		phase, block = next, nextBlock
	}
}

// configure waits for the lobby to fill up, publishes the player's opening
// block and waits for the host to open the first round.
func (s *Session) configure(ctx context.Context) (types.Phase, types.BlockState, error) {
	c := s.coordinator
	id := s.gameID

	s.watch = c.registry.Watch(ctx, id, phaseIs(types.PhaseError),
		func(record *types.GameRecord) {
			s.terminate(&GameError{Message: record.Error})
		},
		func(err error) {
			s.terminate(err)
		},
	)

	full := func(record *types.GameRecord) bool {
		return record != nil && record.OccupiedCount() >= record.MaxPlayers
	}
	record, err := c.registry.WaitFor(ctx, id, full, c.lobbyTimeout)
	if err != nil {
		return "", types.BlockState{}, err
	}
	s.started = true
	s.replica.update(record)

	player := s.replica.Player()
	opening := types.OpeningPhase(record.MaxPlayers)
	block := types.BlockState{OwnerSlot: player.PlayerID}
	if opening == types.PhaseDrawing {
		word, err := s.randomWord(ctx, words.ParseLanguage(record.Language))
		if err != nil {
			return "", types.BlockState{}, err
		}
		block.Word = word
	}

	if player.IsHost() {
		pending := c.registry.Expect(ctx, id, hasAllBlocks, c.stepTimeout)
		if err := c.store.Patch(ctx, id, store.SetBlock(player.BlockID, block)); err != nil {
			return "", types.BlockState{}, err
		}
		if _, err := pending.Wait(ctx); err != nil {
			return "", types.BlockState{}, err
		}
		if err := s.setPhase(ctx, opening); err != nil {
			return "", types.BlockState{}, err
		}
	} else {
		pending := c.registry.Expect(ctx, id, phaseActive, c.phaseTimeout)
		if err := c.store.Patch(ctx, id, store.SetBlock(player.BlockID, block)); err != nil {
			return "", types.BlockState{}, err
		}
		record, err := pending.Wait(ctx)
		if err != nil {
			return "", types.BlockState{}, err
		}
		s.replica.update(record)
	}

	player.RoundStart = c.scheduler.Now()
	s.replica.setPlayer(player)
	s.createHistory(ctx, record)
	return opening, block, nil
}

// advanceRound publishes the finished block, waits for every slot to finish
// and either ends the game or hands the player its next block.
func (s *Session) advanceRound(ctx context.Context, phase types.Phase) (types.Phase, types.BlockState, bool, error) {
	c := s.coordinator
	id := s.gameID
	player := s.replica.Player()

	block := s.replica.closeRound()
	if phase.RequiresWord() && strings.TrimSpace(block.Word) == "" {
		return "", types.BlockState{}, false, &AbandonmentError{Slot: player.BlockID}
	}
	block.Completed = true

	pending := c.registry.Expect(ctx, id, allCompleted(true), c.stepTimeout)
	if err := c.store.Patch(ctx, id, store.SetBlock(player.BlockID, block)); err != nil {
		return "", types.BlockState{}, false, err
	}
	record, err := pending.Wait(ctx)
	if err != nil {
		return "", types.BlockState{}, false, err
	}
	s.replica.update(record)
	s.recordRound(ctx, record, phase)

	if player.HasFinished(record.MaxPlayers) {
		if player.IsHost() {
			return "", types.BlockState{}, true, s.setPhase(ctx, types.PhaseFinished)
		}
		record, err := c.registry.WaitFor(ctx, id, phaseIs(types.PhaseFinished), c.phaseTimeout)
		if err != nil {
			return "", types.BlockState{}, false, err
		}
		s.replica.update(record)
		return "", types.BlockState{}, true, nil
	}

	next := phase.Next()
	nextSlot := player.NextBlockID(record.MaxPlayers)
	nextBlock := handOver(record.BlockStates[nextSlot], next, player.PlayerID)

	if player.IsHost() {
		pending := c.registry.Expect(ctx, id, allCompleted(false), c.stepTimeout)
		if err := c.store.Patch(ctx, id, store.SetBlock(nextSlot, nextBlock)); err != nil {
			return "", types.BlockState{}, false, err
		}
		if _, err := pending.Wait(ctx); err != nil {
			return "", types.BlockState{}, false, err
		}
		if err := s.setPhase(ctx, next); err != nil {
			return "", types.BlockState{}, false, err
		}
	} else {
		pending := c.registry.Expect(ctx, id, phaseIs(next), c.phaseTimeout)
		if err := c.store.Patch(ctx, id, store.SetBlock(nextSlot, nextBlock)); err != nil {
			return "", types.BlockState{}, false, err
		}
		record, err := pending.Wait(ctx)
		if err != nil {
			return "", types.BlockState{}, false, err
		}
		s.replica.update(record)
	}

	s.replica.setPlayer(player.Rotate(record.MaxPlayers, c.scheduler.Now()))
	return next, nextBlock, false, nil
}

// handOver derives the block a player takes over for the next round. Drawers
// get the word without the old drawing, guessers get the drawing without the
// word.
func handOver(previous types.BlockState, next types.Phase, owner int) types.BlockState {
	block := types.BlockState{OwnerSlot: owner}
	if next == types.PhaseDrawing {
		block.Word = previous.Word
	} else {
		block.Board = previous.Board
	}
	return block
}

// setPhase writes the global phase unless the game has already failed.
func (s *Session) setPhase(ctx context.Context, phase types.Phase) error {
	err := s.coordinator.store.Transact(ctx, s.gameID, func(tx store.Tx) error {
		record, err := tx.Get()
		if err != nil {
			return err
		}
		if record.Phase == types.PhaseError {
			return &GameError{Message: record.Error}
		}
		return tx.Update(store.SetPhase(phase))
	})
	if err != nil {
		return err
	}
	s.logger.Info("Game moved to %s", phase)
	return nil
}

func (s *Session) randomWord(ctx context.Context, lang words.Language) (string, error) {
	if s.coordinator.words == nil {
		return "", errors.New("no word source configured")
	}
	word, err := s.coordinator.words.RandomWord(ctx, lang)
	if err != nil {
		return "", fmt.Errorf("failed to fetch a word: %w", err)
	}
	return word.Word, nil
}

// finish reports the outcome and releases everything the session holds.
func (s *Session) finish() {
	c := s.coordinator
	err := s.Err()
	ctx, cancel := context.WithTimeout(context.Background(), c.phaseTimeout)
	defer cancel()

	left := false
	var gameErr *GameError
	switch {
	case err == nil:
		s.logger.Info("Game finished after %d rounds", s.rounds)
		s.observer.GameFinished(GameSummary{GameID: s.gameID, Rounds: s.rounds, HistoryID: s.historyID})
	case errors.Is(err, ErrQuit):
		s.logger.Info("Player quit the game")
		s.leave(ctx, constants.MessagePlayerQuit)
		left = true
		s.replica.fail(constants.MessagePlayerQuit)
		s.removeHistory(ctx)
	case errors.As(err, &gameErr):
		s.logger.Info("Game failed: %s", gameErr.Message)
		s.replica.fail(gameErr.Message)
		s.removeHistory(ctx)
		s.observer.GameFailed(gameErr.Message)
	default:
		message := UserMessage(err)
		s.logger.Warn("Game failed (%s): %v", Kind(err), err)
		s.leave(ctx, message)
		left = true
		s.replica.fail(message)
		s.removeHistory(ctx)
		s.observer.GameFailed(message)
	}

	if s.watch != nil {
		s.watch.Cancel()
	}
	c.registry.Release(s.gameID)
	c.registry.Unregister(s.gameID)

	player := s.replica.Player()
	switch {
	case c.cleanup != nil:
		if err := c.cleanup.Schedule(s.gameID, player.PlayerID); err != nil {
			s.logger.Warn("Failed to schedule cleanup: %v", err)
		}
	case !left:
		s.leave(ctx, constants.MessagePlayerQuit)
	}
	close(s.done)
}

// leave removes the player from the record. Failures are only logged: the
// cleanup worker retries the same operation.
func (s *Session) leave(ctx context.Context, message string) {
	player := s.replica.Player()
	err := removePlayer(ctx, s.coordinator.store, s.gameID, player.PlayerID, message, s.started)
	if err != nil && !store.IsNotFound(err) {
		s.logger.Debug("Failed to leave game: %v", err)
	}
}

func (s *Session) createHistory(ctx context.Context, record *types.GameRecord) {
	history := s.coordinator.history
	if history == nil {
		return
	}
	game, err := history.CreateGame(ctx, record.MaxPlayers, record.RoundTimeSeconds)
	if err != nil {
		s.logger.Warn("Failed to record game history: %v", err)
		return
	}
	s.historyID = game.ID
}

func (s *Session) recordRound(ctx context.Context, record *types.GameRecord, phase types.Phase) {
	history := s.coordinator.history
	if history == nil || s.historyID == 0 {
		return
	}
	round, err := history.AddRound(ctx, s.historyID, phase)
	if err != nil {
		s.logger.Warn("Failed to record round: %v", err)
		return
	}
	for slot := 0; slot < record.MaxPlayers; slot++ {
		block := record.BlockStates[slot]
		result := models.RoundResult{
			PlayerID: block.OwnerSlot,
			Word:     block.Word,
			Board:    block.Board,
		}
		if p := record.Player(block.OwnerSlot); p != nil {
			result.PlayerName = p.Name
		}
		if err := history.AddRoundResult(ctx, round.ID, result); err != nil {
			s.logger.Warn("Failed to record round result: %v", err)
			return
		}
	}
}

func (s *Session) removeHistory(ctx context.Context) {
	history := s.coordinator.history
	if history == nil || s.historyID == 0 {
		return
	}
	if err := history.RemoveGame(ctx, s.historyID); err != nil {
		s.logger.Warn("Failed to remove game history: %v", err)
	}
	s.historyID = 0
}

func phaseIs(phase types.Phase) waiter.Predicate {
	return func(record *types.GameRecord) bool {
		return record != nil && record.Phase == phase
	}
}

func phaseActive(record *types.GameRecord) bool {
	return record != nil && record.Phase.IsActive()
}

func hasAllBlocks(record *types.GameRecord) bool {
	return record != nil && record.HasAllBlocks()
}

func allCompleted(completed bool) waiter.Predicate {
	return func(record *types.GameRecord) bool {
		return record != nil && record.HasAllBlocks() && record.AllCompleted(completed)
	}
}
