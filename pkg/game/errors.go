package game

import (
	"errors"
	"fmt"

	"github.com/cbodonnell/drag/pkg/game/constants"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/cbodonnell/drag/pkg/waiter"
)

// ErrQuit is the terminal error of a coordinator whose player left.
var ErrQuit = errors.New("player quit the game")

// ErrInputClosed is returned by local input the current round does not accept.
var ErrInputClosed = errors.New("input not accepted in the current round")

// ValidationError rejects bad input before the store is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError rejects a create or join that conflicts with the shared record.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type NotFoundError struct {
	GameID string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Game %s does not exist", e.GameID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// AbandonmentError is raised when a player ends a round without the input
// the round requires.
type AbandonmentError struct {
	Slot int
}

func (e *AbandonmentError) Error() string {
	return constants.MessagePlayerAway
}

// GameError is the failure another client published on the shared record.
type GameError struct {
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindTimeout
	KindTransport
	KindAbandonment
	KindGame
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindAbandonment:
		return "abandonment"
	case KindGame:
		return "game"
	default:
		return "unknown"
	}
}

// Kind classifies err.
func Kind(err error) ErrorKind {
	var validation *ValidationError
	var conflict *ConflictError
	var notFound *NotFoundError
	var abandonment *AbandonmentError
	var gameErr *GameError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &conflict), store.IsAlreadyExists(err):
		return KindConflict
	case errors.As(err, &notFound), store.IsNotFound(err):
		return KindNotFound
	case waiter.IsTimeout(err):
		return KindTimeout
	case waiter.IsTransport(err):
		return KindTransport
	case errors.As(err, &abandonment):
		return KindAbandonment
	case errors.As(err, &gameErr):
		return KindGame
	default:
		return KindUnknown
	}
}

// UserMessage returns the text shown to players for err.
func UserMessage(err error) string {
	switch Kind(err) {
	case KindValidation, KindConflict, KindNotFound, KindAbandonment, KindGame:
		return err.Error()
	case KindTimeout:
		return constants.MessageTimeout
	default:
		return constants.MessageUnexpectedError
	}
}
