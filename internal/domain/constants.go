package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Session constants
const (
	// DefaultHistoryCapacity is how many snapshots a session retains
	DefaultHistoryCapacity = 50
	// DefaultRunWindowSize is how many run events the thrash window retains
	DefaultRunWindowSize = 20
)

// Coaching constants
const (
	// DefaultThrashThreshold is the score the gate must exceed
	DefaultThrashThreshold = 3.0
	// DefaultCoachingCooldown is the minimum spacing between gate triggers
	DefaultCoachingCooldown = 15 * time.Second
	// DefaultCoachingTimeout bounds one external coaching call
	DefaultCoachingTimeout = 60 * time.Second
)

// Timeout and duration constants
const (
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 60 * time.Second
	// DefaultModelTestTimeout is the default timeout for model testing
	DefaultModelTestTimeout = 30 * time.Second
)

// Cache constants
const (
	// DefaultMaxCacheEntries is the maximum number of cache entries
	DefaultMaxCacheEntries = 100
	// DefaultCacheTTL is how long a coaching response stays valid
	DefaultCacheTTL = time.Hour
)

// Archive constants
const (
	// DefaultArchiveListLimit is the default number of archived sessions to display
	DefaultArchiveListLimit = 20
	// MaxArchiveAnalysisRecords is the maximum number of sessions to analyze
	MaxArchiveAnalysisRecords = 1000
	// ArchiveDriverSQLite stores artifacts in SQLite
	ArchiveDriverSQLite = "sqlite"
	// ArchiveDriverJSONL appends artifacts to a jsonl file
	ArchiveDriverJSONL = "jsonl"
)

// Server constants
const (
	DefaultServerAddr        = "127.0.0.1:8787"
	DefaultAttemptsPerSecond = 5.0
	DefaultAttemptBurst      = 10
)

// Model configuration constants
const (
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 1024
)

// Logging constants
const (
	DefaultLogLevel = "info"
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
