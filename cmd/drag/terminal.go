package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/words"
)

// terminal shows the game on a writer and either reads moves from stdin or
// plays them itself.
type terminal struct {
	out   io.Writer
	bot   bool
	words game.WordSource
	lock  sync.Mutex
}

func newTerminal(out io.Writer, bot bool, source game.WordSource) *terminal {
	return &terminal{out: out, bot: bot, words: source}
}

func (t *terminal) printf(format string, args ...interface{}) {
	t.lock.Lock()
	defer t.lock.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) RoundStarted(s *game.Session, view game.RoundView) {
	left := time.Until(view.Deadline).Round(time.Second)
	switch view.Phase {
	case types.PhasePickWord:
		t.printf("Round %d: pick a word for the next player to draw (%v)\n", view.Round, left)
	case types.PhaseDrawing:
		t.printf("Round %d: draw %q (%v)\n", view.Round, view.Block.Word, left)
		t.printf("  type strokes as x,y pairs separated by spaces, or \"clear\"\n")
	case types.PhaseGuessing:
		t.printf("Round %d: guess this drawing (%v)\n", view.Round, left)
		for i, stroke := range view.Block.Board.Strokes() {
			t.printf("  stroke %d: %s\n", i+1, formatStroke(stroke))
		}
	}
	if t.bot {
		t.play(s, view)
	}
}

func (t *terminal) GameFinished(summary game.GameSummary) {
	t.printf("Game %s finished after %d rounds\n", summary.GameID, summary.Rounds)
}

func (t *terminal) GameFailed(message string) {
	t.printf("Game over: %s\n", message)
}

// play makes the bot's move for a round.
func (t *terminal) play(s *game.Session, view game.RoundView) {
	var err error
	switch view.Phase {
	case types.PhaseDrawing:
		err = s.AddStroke(randomStroke())
	default:
		err = s.SubmitWord(t.botWord(words.ParseLanguage(s.Snapshot().Record.Language), view))
	}
	if err != nil {
		log.Warn("Bot move failed: %v", err)
	}
}

func (t *terminal) botWord(lang words.Language, view game.RoundView) string {
	if t.words != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		word, err := t.words.RandomWord(ctx, lang)
		if err == nil && word.Word != "" {
			return word.Word
		}
		log.Debug("Falling back to a generated word: %v", err)
	}
	return fmt.Sprintf("word-%d-%d", view.Player.PlayerID, view.Round)
}

// readMoves feeds stdin lines into the session until it ends.
func (t *terminal) readMoves(s *game.Session, scanner *bufio.Scanner) {
	for scanner.Scan() {
		select {
		case <-s.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := t.move(s, line); err != nil {
			t.printf("%s\n", game.UserMessage(err))
		}
	}
}

func (t *terminal) move(s *game.Session, line string) error {
	if line == "quit" {
		go s.Quit(context.Background())
		return nil
	}
	snapshot := s.Snapshot()
	if !snapshot.Open {
		return &game.ValidationError{Message: "Wait for the next round"}
	}
	switch snapshot.Phase {
	case types.PhaseDrawing:
		if line == "clear" {
			return s.ResetBoard()
		}
		stroke, err := parseStroke(line)
		if err != nil {
			return err
		}
		return s.AddStroke(stroke)
	default:
		return s.SubmitWord(line)
	}
}

// parseStroke reads "x,y x,y ..." into a stroke.
func parseStroke(line string) (drawing.Stroke, error) {
	fields := strings.Fields(line)
	stroke := make(drawing.Stroke, 0, len(fields))
	for _, field := range fields {
		parts := strings.Split(field, ",")
		if len(parts) != 2 {
			return nil, &game.ValidationError{Message: fmt.Sprintf("Invalid point %q", field)}
		}
		x, errX := strconv.ParseFloat(parts[0], 64)
		y, errY := strconv.ParseFloat(parts[1], 64)
		if errX != nil || errY != nil {
			return nil, &game.ValidationError{Message: fmt.Sprintf("Invalid point %q", field)}
		}
		stroke = append(stroke, drawing.Point{X: x, Y: y})
	}
	if err := stroke.Validate(); err != nil {
		return nil, &game.ValidationError{Message: "Coordinates go from 0 to 1"}
	}
	return stroke, nil
}

func formatStroke(stroke drawing.Stroke) string {
	points := make([]string, 0, len(stroke))
	for _, p := range stroke {
		points = append(points, strconv.FormatFloat(p.X, 'f', -1, 64)+","+strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	return strings.Join(points, " ")
}

func randomStroke() drawing.Stroke {
	stroke := make(drawing.Stroke, 0, 8)
	for i := 0; i < 8; i++ {
		stroke = append(stroke, drawing.Point{X: rand.Float64(), Y: rand.Float64()})
	}
	return stroke
}

// printRecord writes a one-line summary of a watched record.
func printRecord(out io.Writer, record *types.GameRecord) {
	slots := record.Occupied()
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		names = append(names, record.Player(slot).Name)
	}
	line := fmt.Sprintf("%s %s %d/%d [%s]", record.ID, record.Phase, len(slots), record.MaxPlayers, strings.Join(names, ", "))
	if record.Error != "" {
		line += " " + record.Error
	}
	fmt.Fprintln(out, line)
}
