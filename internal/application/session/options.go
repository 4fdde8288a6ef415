package session

import (
	"time"

	"github.com/doeshing/retrace/internal/domain"
)

// Options sizes and tunes a session.
type Options struct {
	HistoryCapacity  int
	WindowSize       int
	Threshold        float64
	Cooldown         time.Duration
	CoachingEnabled  bool
	CoachingTimeout  time.Duration
	IncludeSnapshots bool

	// Now and NewSnapshotID are overridable for tests.
	Now           func() time.Time
	NewSnapshotID func() string
}

// DefaultOptions mirrors the built-in constants.
func DefaultOptions() Options {
	return Options{
		HistoryCapacity: domain.DefaultHistoryCapacity,
		WindowSize:      domain.DefaultRunWindowSize,
		Threshold:       domain.DefaultThrashThreshold,
		Cooldown:        domain.DefaultCoachingCooldown,
		CoachingEnabled: true,
		CoachingTimeout: domain.DefaultCoachingTimeout,
	}
}

// OptionsFromConfig derives session options from the loaded config.
func OptionsFromConfig(cfg domain.Config) Options {
	opts := DefaultOptions()
	opts.HistoryCapacity = cfg.GetHistoryCapacity()
	opts.WindowSize = cfg.GetWindowSize()
	opts.Threshold = cfg.GetThrashThreshold()
	opts.Cooldown = cfg.GetCoachingCooldown()
	opts.CoachingEnabled = cfg.IsCoachingEnabled()
	opts.CoachingTimeout = time.Duration(cfg.GetTimeoutSeconds()) * time.Second
	opts.IncludeSnapshots = cfg.Archive.IncludeSnapshots
	return opts
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.CoachingTimeout <= 0 {
		o.CoachingTimeout = domain.DefaultCoachingTimeout
	}
	return o
}
