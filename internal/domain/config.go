package domain

// Config mirrors ~/.retrace/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Preferences         Preferences       `yaml:"preferences"`
	Models              []ModelDefinition `yaml:"models"`
	Session             SessionSettings   `yaml:"session"`
	Coaching            CoachingSettings  `yaml:"coaching"`
	Archive             ArchiveSettings   `yaml:"archive"`
	Cache               CacheSettings     `yaml:"cache"`
	Logging             LoggingSettings   `yaml:"logging"`
	Server              ServerSettings    `yaml:"server"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string   `yaml:"default_model"`
	FallbackModels []string `yaml:"fallback_models,omitempty"`
	TimeoutSeconds int      `yaml:"timeout"`
}

// SessionSettings sizes the per-session history and thrash window.
type SessionSettings struct {
	HistoryCapacity int `yaml:"history_capacity"`
	WindowSize      int `yaml:"window_size"`
}

// CoachingSettings configures the coaching gate.
type CoachingSettings struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	Cooldown  string  `yaml:"cooldown"`
}

// ArchiveSettings controls where closed sessions are kept.
type ArchiveSettings struct {
	Enabled          bool   `yaml:"enabled"`
	Driver           string `yaml:"driver"`
	Path             string `yaml:"path"`
	IncludeSnapshots bool   `yaml:"include_snapshots"`
}

// CacheSettings controls the coaching response cache.
type CacheSettings struct {
	Enabled    bool   `yaml:"enabled"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// ServerSettings configures `retrace serve`.
type ServerSettings struct {
	Addr              string   `yaml:"addr"`
	AllowedOrigins    []string `yaml:"allowed_origins,omitempty"`
	AttemptsPerSecond float64  `yaml:"attempts_per_second"`
	AttemptBurst      int      `yaml:"attempt_burst"`
}
