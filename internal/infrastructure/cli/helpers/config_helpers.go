package helpers

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/retrace/internal/app"
	configapp "github.com/doeshing/retrace/internal/application/config"
	"github.com/doeshing/retrace/internal/domain"
	configinfra "github.com/doeshing/retrace/internal/infrastructure/config"
)

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*configinfra.FileLoader, error) {
	if container == nil || container.ConfigLoader == nil {
		return nil, fmt.Errorf("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// SaveConfigWithValidation validates and saves configuration
func SaveConfigWithValidation(container *app.Container, cfg domain.Config) error {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return err
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// SetConfigValue applies a dotted key path (e.g. coaching.threshold) whose value
// is parsed as YAML, and returns the updated config.
func SetConfigValue(cfg domain.Config, keyPath, value string) (domain.Config, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to marshal config: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return domain.Config{}, fmt.Errorf("failed to unmarshal to map: %w", err)
	}

	if !setNestedMapValue(tree, strings.Split(keyPath, "."), parseYAMLValue(value)) {
		return domain.Config{}, fmt.Errorf("unable to set key %s", keyPath)
	}

	updatedRaw, err := yaml.Marshal(tree)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to marshal updated map: %w", err)
	}
	updated, err := configinfra.Parse(updatedRaw)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to decode %s: %w", keyPath, err)
	}
	return updated, nil
}

// parseYAMLValue parses input as YAML, falling back to the literal string.
func parseYAMLValue(input string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(input), &parsed); err != nil {
		return input
	}
	return parsed
}

func setNestedMapValue(root map[string]interface{}, keyPath []string, value interface{}) bool {
	if len(keyPath) == 0 || keyPath[0] == "" {
		return false
	}
	current := root
	for _, key := range keyPath[:len(keyPath)-1] {
		child, ok := current[key].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			current[key] = child
		}
		current = child
	}
	current[keyPath[len(keyPath)-1]] = value
	return true
}
