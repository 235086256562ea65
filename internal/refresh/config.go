package refresh

import "time"

const (
	DefaultInterval     = 5 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
	lockMargin          = 30 * time.Second
)

// Config controls the refresh loop. Durations are read on every use so
// dashboard.yml reloads take effect without a restart.
type Config struct {
	Source          string
	RefreshInterval func() time.Duration
	FetchTimeout    func() time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval == nil {
		c.RefreshInterval = func() time.Duration { return DefaultInterval }
	}
	if c.FetchTimeout == nil {
		c.FetchTimeout = func() time.Duration { return DefaultFetchTimeout }
	}
	return c
}

func (c Config) Interval() time.Duration {
	if d := c.RefreshInterval(); d > 0 {
		return d
	}
	return DefaultInterval
}

// LockTTL outlives a run that hits the fetch timeout.
func (c Config) LockTTL() time.Duration {
	timeout := c.FetchTimeout()
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return timeout + lockMargin
}
