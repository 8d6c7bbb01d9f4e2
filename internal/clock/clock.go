package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts the wall clock so month boundaries and audit timestamps are testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystemClock() Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// StartOfMonth returns the first instant of t's month in UTC.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
