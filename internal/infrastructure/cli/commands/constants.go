package commands

import "github.com/doeshing/retrace/internal/app"

// Env carries the container built by the root command's pre-run.
type Env struct {
	Container *app.Container
}

// SkipContainerAnnotation marks commands that run without config.
const SkipContainerAnnotation = "retrace/skip-container"

// Error messages
const (
	ErrContainerUnavailable     = "application container unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrArchiveUnavailable       = "session archive unavailable"
	ErrCacheStoreUnavailable    = "cache store unavailable"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoArchivedSessions       = "No archived sessions yet."
	MsgNoCachedResponses        = "No cached responses."
)
