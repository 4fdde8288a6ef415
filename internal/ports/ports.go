// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). Following the Ports and Adapters (Hexagonal) pattern,
// these interfaces allow the session core to remain independent of specific
// implementations like databases, HTTP clients, or CLI frameworks.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Coach, SessionArchive)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/doeshing/retrace/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.retrace/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ProviderFactory builds AI provider instances based on model definitions.
// It abstracts the creation of different provider types (Anthropic, OpenAI, Ollama).
type ProviderFactory interface {
	ForModel(domain.ModelDefinition) (Provider, error)
}

// Provider is a single chat-style completion endpoint.
type Provider interface {
	Name() string
	Model() domain.ModelDefinition
	Generate(context.Context, ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest carries the rendered prompt for one completion.
type ProviderRequest struct {
	System string
	Prompt string
	Model  domain.ModelDefinition
	Debug  bool
}

// ProviderResponse holds the raw model reply.
type ProviderResponse struct {
	Reply string
}

// Coach is the external coaching capability invoked when the thrash gate fires.
// Implementations may be slow or fail; callers treat it as fire-and-forget.
type Coach interface {
	SubmitForCoaching(context.Context, domain.CoachingPayload) (domain.CoachingResult, error)
}

// SessionArchive persists closed sessions for later review and signals.
type SessionArchive interface {
	Save(context.Context, domain.SessionArtifact) error
	Get(ctx context.Context, sessionID string) (domain.SessionArtifact, error)
	List(ctx context.Context, limit int, problemID, userID string) ([]domain.SessionArtifact, error)
	Clear(context.Context) error
	ExportJSON(ctx context.Context, dest string) error
	Path() string
}

// CacheRepository stores coaching responses keyed by payload digest.
type CacheRepository interface {
	Get(key string) (domain.CacheEntry, bool, error)
	Set(entry domain.CacheEntry) error
	Entries() ([]domain.CacheEntry, error)
	Clear() error
	Dir() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
