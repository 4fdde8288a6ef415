package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrModelNotFound is returned when a model name is not configured.
	ErrModelNotFound = errors.New("model not found")
	// ErrModelExists is returned when adding a model whose name is taken.
	ErrModelExists = errors.New("model already exists")
)

// GetDefaultModel returns the model coaching calls go to first.
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, errors.New("no default model configured")
	}
	model, ok := c.FindModelByName(c.Preferences.DefaultModel)
	if !ok {
		return ModelDefinition{}, fmt.Errorf("default model %s: %w", c.Preferences.DefaultModel, ErrModelNotFound)
	}
	return model, nil
}

// FindModelByName looks a model up by name.
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	idx := c.modelIndex(name)
	if idx < 0 {
		return ModelDefinition{}, false
	}
	return c.Models[idx], true
}

// HasModel reports whether name is configured.
func (c *Config) HasModel(name string) bool {
	return c.modelIndex(name) >= 0
}

// GetFallbackModels returns the configured fallbacks in order, skipping names
// that no longer resolve.
func (c *Config) GetFallbackModels() []ModelDefinition {
	var out []ModelDefinition
	for _, name := range c.Preferences.FallbackModels {
		if model, ok := c.FindModelByName(name); ok {
			out = append(out, model)
		}
	}
	return out
}

// GetModelCount returns the number of configured models.
func (c *Config) GetModelCount() int {
	return len(c.Models)
}

// AddModel registers a coaching model. The first model added to a config
// without a default becomes the default.
func (c *Config) AddModel(model ModelDefinition) error {
	if model.Name == "" {
		return errors.New("model name is required")
	}
	if c.HasModel(model.Name) {
		return fmt.Errorf("%s: %w", model.Name, ErrModelExists)
	}
	c.Models = append(c.Models, model)
	if c.Preferences.DefaultModel == "" {
		c.Preferences.DefaultModel = model.Name
	}
	return nil
}

// RemoveModel drops a model and every fallback reference to it. Removing the
// default promotes the first remaining fallback, else the first model left.
func (c *Config) RemoveModel(name string) error {
	idx := c.modelIndex(name)
	if idx < 0 {
		return fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	c.Models = slices.Delete(c.Models, idx, idx+1)
	c.Preferences.FallbackModels = slices.DeleteFunc(c.Preferences.FallbackModels, func(f string) bool {
		return f == name
	})

	if c.Preferences.DefaultModel != name {
		return nil
	}
	c.Preferences.DefaultModel = ""
	if fallbacks := c.GetFallbackModels(); len(fallbacks) > 0 {
		c.Preferences.DefaultModel = fallbacks[0].Name
	} else if len(c.Models) > 0 {
		c.Preferences.DefaultModel = c.Models[0].Name
	}
	return nil
}

// SetDefaultModel makes name the default and removes it from the fallbacks.
func (c *Config) SetDefaultModel(name string) error {
	if !c.HasModel(name) {
		return fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	c.Preferences.DefaultModel = name
	c.Preferences.FallbackModels = slices.DeleteFunc(c.Preferences.FallbackModels, func(f string) bool {
		return f == name
	})
	return nil
}

// ValidateConsistency checks that the default and fallback names resolve.
func (c *Config) ValidateConsistency() error {
	if c.Preferences.DefaultModel != "" && !c.HasModel(c.Preferences.DefaultModel) {
		return fmt.Errorf("default model %s: %w", c.Preferences.DefaultModel, ErrModelNotFound)
	}
	for _, name := range c.Preferences.FallbackModels {
		if !c.HasModel(name) {
			return fmt.Errorf("fallback model %s: %w", name, ErrModelNotFound)
		}
	}
	return nil
}

func (c *Config) modelIndex(name string) int {
	return slices.IndexFunc(c.Models, func(m ModelDefinition) bool { return m.Name == name })
}
