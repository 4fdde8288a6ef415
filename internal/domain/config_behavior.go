package domain

import "time"

// GetHistoryCapacity returns how many snapshots a session keeps
func (c *Config) GetHistoryCapacity() int {
	if c.Session.HistoryCapacity <= 0 {
		return DefaultHistoryCapacity
	}
	return c.Session.HistoryCapacity
}

// GetWindowSize returns the thrash window size
func (c *Config) GetWindowSize() int {
	if c.Session.WindowSize <= 0 {
		return DefaultRunWindowSize
	}
	return c.Session.WindowSize
}

// IsCoachingEnabled checks if the coaching gate may call the provider
func (c *Config) IsCoachingEnabled() bool {
	return c.Coaching.Enabled
}

// GetThrashThreshold returns the score the coaching gate must exceed
func (c *Config) GetThrashThreshold() float64 {
	if c.Coaching.Threshold <= 0 {
		return DefaultThrashThreshold
	}
	return c.Coaching.Threshold
}

// GetCoachingCooldown returns the minimum spacing between coaching triggers
// Returns the default if unset or unparseable
func (c *Config) GetCoachingCooldown() time.Duration {
	return parseDurationOr(c.Coaching.Cooldown, DefaultCoachingCooldown)
}

// IsArchiveEnabled checks if closed sessions are archived
func (c *Config) IsArchiveEnabled() bool {
	return c.Archive.Enabled
}

// GetArchiveDriver returns the archive backend name
func (c *Config) GetArchiveDriver() string {
	if c.Archive.Driver == "" {
		return ArchiveDriverSQLite
	}
	return c.Archive.Driver
}

// IsCacheEnabled checks if coaching responses are cached
func (c *Config) IsCacheEnabled() bool {
	return c.Cache.Enabled
}

// GetCacheTTL returns the cache entry lifetime
func (c *Config) GetCacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, DefaultCacheTTL)
}

// GetCacheMaxEntries returns the maximum number of cache entries
func (c *Config) GetCacheMaxEntries() int {
	if c.Cache.MaxEntries <= 0 {
		return DefaultMaxCacheEntries
	}
	return c.Cache.MaxEntries
}

// GetTimeoutSeconds returns the coaching request timeout in seconds
func (c *Config) GetTimeoutSeconds() int {
	const defaultTimeoutSeconds = 60

	if c.Preferences.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds
	}
	return c.Preferences.TimeoutSeconds
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() string {
	if c.Logging.Level == "" {
		return DefaultLogLevel
	}
	return c.Logging.Level
}

// GetServerAddr returns the listen address for the HTTP API
func (c *Config) GetServerAddr() string {
	if c.Server.Addr == "" {
		return DefaultServerAddr
	}
	return c.Server.Addr
}

// GetAttemptRate returns the per-session attempt rate limit and burst
func (c *Config) GetAttemptRate() (float64, int) {
	perSecond := c.Server.AttemptsPerSecond
	if perSecond <= 0 {
		perSecond = DefaultAttemptsPerSecond
	}
	burst := c.Server.AttemptBurst
	if burst <= 0 {
		burst = DefaultAttemptBurst
	}
	return perSecond, burst
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
