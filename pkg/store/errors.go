package store

import (
	"errors"
	"fmt"
)

type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("game %s not found", e.ID)
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

type ErrAlreadyExists struct {
	ID string
}

func (e *ErrAlreadyExists) Error() string {
	return fmt.Sprintf("game %s already exists", e.ID)
}

func IsAlreadyExists(err error) bool {
	var target *ErrAlreadyExists
	return errors.As(err, &target)
}

// ErrTxAborted is returned when a transaction kept conflicting with other
// writers until its retries ran out.
type ErrTxAborted struct {
	ID       string
	Attempts int
}

func (e *ErrTxAborted) Error() string {
	return fmt.Sprintf("transaction on game %s aborted after %d attempts", e.ID, e.Attempts)
}
