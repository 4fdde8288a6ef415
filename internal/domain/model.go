// Package domain defines core entities and value objects for retrace.
//
// It holds the attempt history model (snapshots, diffs, regressions), the
// thrash heuristics and coaching gate, and the configuration and provider
// definitions used throughout the application. The domain layer has no I/O.
package domain

// ModelDefinition describes an AI provider configuration declared in the config file.
// Each model represents a specific AI service endpoint with its authentication and
// generation parameters.
type ModelDefinition struct {
	Name        string          `yaml:"name"`
	Endpoint    string          `yaml:"endpoint"`
	AuthEnvVar  string          `yaml:"auth_env_var"`
	OrgEnvVar   string          `yaml:"org_env_var,omitempty"`
	ModelID     string          `yaml:"model_id"`
	MaxTokens   int             `yaml:"max_tokens"`
	Temperature float64         `yaml:"temperature,omitempty"`
	Prompt      []PromptMessage `yaml:"prompt,omitempty"`
}

// PromptMessage follows the role/content pair required by most chat APIs.
type PromptMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// ProviderKind identifies which wire adapter talks to a model endpoint.
type ProviderKind string

const (
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindOllama    ProviderKind = "ollama"
	ProviderKindUnknown   ProviderKind = "unknown"
)
