package game

import "time"

// Scheduler is the timer primitive rounds are armed with.
type Scheduler interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealScheduler struct{}

func (RealScheduler) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (RealScheduler) Now() time.Time {
	return time.Now()
}

// ScaledScheduler shortens every delay by Scale, e.g. 0.01 turns a minute
// long round into 600ms.
type ScaledScheduler struct {
	Scale float64
}

func (s ScaledScheduler) After(d time.Duration) <-chan time.Time {
	return time.After(time.Duration(float64(d) * s.Scale))
}

func (ScaledScheduler) Now() time.Time {
	return time.Now()
}
