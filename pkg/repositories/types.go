package repositories

import (
	"errors"
	"fmt"
)

type ErrNotFound struct {
	What string
	ID   int64
}

func (e *ErrNotFound) Error() string {
	if e.What == "" {
		return "not found"
	}
	return fmt.Sprintf("%s %d not found", e.What, e.ID)
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}
