package scheduler

import "time"

// Config controls job deadlines and the cross-instance lease.
type Config struct {
	SweepTimeout time.Duration
	// LockTTL bounds how long a crashed instance can hold a job lease.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		SweepTimeout: 30 * time.Second,
		LockTTL:      2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockTTL < c.SweepTimeout {
		c.LockTTL = c.SweepTimeout
	}
	return c
}
