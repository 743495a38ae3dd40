package waiter

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnregistered resolves waits whose key was unregistered before they were
// satisfied.
var ErrUnregistered = errors.New("wait cancelled: key unregistered")

type TimeoutError struct {
	Key     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %v waiting on %s", e.Timeout, e.Key)
}

func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// TransportError reports that the subscription backing a wait failed.
type TransportError struct {
	Key string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("subscription to %s failed: %v", e.Key, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
