package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/retrace/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if len(cfg.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	if cfg.Preferences.DefaultModel == "" {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	if cfg.Preferences.TimeoutSeconds < 0 {
		return fmt.Errorf("preferences.timeout must be >= 0")
	}
	if err := validateSession(cfg.Session); err != nil {
		return err
	}
	if err := validateCoaching(cfg.Coaching); err != nil {
		return err
	}
	if err := validateArchive(cfg.Archive); err != nil {
		return err
	}
	if err := validateCache(cfg.Cache); err != nil {
		return err
	}
	if err := validateServer(cfg.Server); err != nil {
		return err
	}
	return validateLogging(cfg.Logging)
}

func validateSession(session domain.SessionSettings) error {
	if session.HistoryCapacity < 0 {
		return fmt.Errorf("session.history_capacity must be > 0")
	}
	if session.WindowSize < 0 {
		return fmt.Errorf("session.window_size must be > 0")
	}
	return nil
}

func validateCoaching(coaching domain.CoachingSettings) error {
	if coaching.Threshold < 0 {
		return fmt.Errorf("coaching.threshold must be >= 0")
	}
	return validateDuration("coaching.cooldown", coaching.Cooldown)
}

func validateArchive(archive domain.ArchiveSettings) error {
	switch strings.ToLower(archive.Driver) {
	case "", domain.ArchiveDriverSQLite, domain.ArchiveDriverJSONL:
		return nil
	default:
		return fmt.Errorf("archive.driver must be %s|%s, got %s", domain.ArchiveDriverSQLite, domain.ArchiveDriverJSONL, archive.Driver)
	}
}

func validateCache(cache domain.CacheSettings) error {
	if err := validateDuration("cache.ttl", cache.TTL); err != nil {
		return err
	}
	if cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	return nil
}

func validateServer(server domain.ServerSettings) error {
	if server.AttemptsPerSecond < 0 {
		return fmt.Errorf("server.attempts_per_second must be >= 0")
	}
	if server.AttemptBurst < 0 {
		return fmt.Errorf("server.attempt_burst must be >= 0")
	}
	return nil
}

func validateLogging(logging domain.LoggingSettings) error {
	switch strings.ToLower(logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug|info|warn|error, got %s", logging.Level)
	}
}

func validateDuration(field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}
