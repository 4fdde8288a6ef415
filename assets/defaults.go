package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// CoachingPromptTemplate is the default coaching prompt rendered for provider-backed coaches.
//
//go:embed defaults/coaching_prompt.tmpl
var CoachingPromptTemplate string
