package ai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/ports"
)

type Factory struct {
	httpClient *http.Client
}

func NewFactory() *Factory {
	return NewFactoryWithClient(&http.Client{Timeout: domain.DefaultHTTPClientTimeout})
}

// NewFactoryWithClient lets tests point providers at a local server.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{httpClient: client}
}

func (f *Factory) ForModel(model domain.ModelDefinition) (ports.Provider, error) {
	providerKind := InferProviderKind(model.Endpoint, model.Name)

	switch providerKind {
	case domain.ProviderKindAnthropic:
		return newHTTPProvider("anthropic", model, f.httpClient, anthropicAdapter()), nil
	case domain.ProviderKindOpenAI:
		return newHTTPProvider("openai", model, f.httpClient, openaiAdapter()), nil
	case domain.ProviderKindOllama:
		return newHTTPProvider("ollama", model, f.httpClient, ollamaAdapter()), nil
	default:
		return nil, fmt.Errorf("unsupported provider for model %s (%s)", model.Name, model.Endpoint)
	}
}

// NewCoach builds a coach for the default model followed by its fallbacks.
// Models without credentials are skipped. The heuristic coach answers when no
// provider remains or all of them fail.
func (f *Factory) NewCoach(cfg domain.Config, log ports.Logger) ports.Coach {
	var providers []ports.Provider
	for _, model := range coachingModels(cfg) {
		if !hasCredentials(model) {
			continue
		}
		provider, err := f.ForModel(model)
		if err != nil {
			continue
		}
		providers = append(providers, provider)
	}
	if len(providers) == 0 {
		return NewHeuristicCoach()
	}
	coach := NewProviderCoach(log, providers...)
	coach.Fallback = NewHeuristicCoach()
	return coach
}

func coachingModels(cfg domain.Config) []domain.ModelDefinition {
	var models []domain.ModelDefinition
	if model, err := cfg.GetDefaultModel(); err == nil {
		models = append(models, model)
	}
	return append(models, cfg.GetFallbackModels()...)
}

func hasCredentials(model domain.ModelDefinition) bool {
	switch InferProviderKind(model.Endpoint, model.Name) {
	case domain.ProviderKindAnthropic:
		return getEnv(model.AuthEnvVar, "ANTHROPIC_API_KEY") != ""
	case domain.ProviderKindOpenAI:
		return getEnv(model.AuthEnvVar, "OPENAI_API_KEY") != ""
	case domain.ProviderKindOllama:
		return true
	default:
		return false
	}
}

// InferProviderKind guesses the wire protocol from the endpoint and model name.
func InferProviderKind(endpoint string, name string) domain.ProviderKind {
	nameLower := strings.ToLower(name)

	switch {
	case strings.Contains(endpoint, "anthropic.com"), strings.Contains(nameLower, "claude"):
		return domain.ProviderKindAnthropic
	case strings.Contains(endpoint, "openai.com"), strings.HasPrefix(nameLower, "gpt"):
		return domain.ProviderKindOpenAI
	case strings.Contains(nameLower, "ollama"), strings.Contains(endpoint, "11434"), strings.Contains(endpoint, "localhost"):
		return domain.ProviderKindOllama
	default:
		return domain.ProviderKindUnknown
	}
}

var _ ports.ProviderFactory = (*Factory)(nil)
