package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts the current time so that schedules and classifications can be tested.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func New() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
