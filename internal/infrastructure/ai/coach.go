package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/logger"
	"github.com/doeshing/retrace/internal/ports"
)

// ErrNoJSON is returned when a provider reply has no JSON object in it.
var ErrNoJSON = errors.New("no JSON object in reply")

// ProviderCoach asks providers in order until one returns a usable report card.
// Fallback, when set, answers after every provider failed.
type ProviderCoach struct {
	Fallback ports.Coach

	providers []ports.Provider
	logger    ports.Logger
}

// NewProviderCoach builds a coach over one or more providers.
func NewProviderCoach(log ports.Logger, providers ...ports.Provider) *ProviderCoach {
	if log == nil {
		log = logger.Nop{}
	}
	return &ProviderCoach{providers: providers, logger: log}
}

// Providers returns the providers tried, in order.
func (c *ProviderCoach) Providers() []ports.Provider {
	return c.providers
}

// SubmitForCoaching implements ports.Coach.
func (c *ProviderCoach) SubmitForCoaching(ctx context.Context, payload domain.CoachingPayload) (domain.CoachingResult, error) {
	if len(c.providers) == 0 && c.Fallback == nil {
		return domain.CoachingResult{}, errors.New("no coaching provider configured")
	}

	var errs []error
	for _, provider := range c.providers {
		result, err := c.ask(ctx, provider, payload)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("coaching provider failed", map[string]interface{}{
			"provider": provider.Name(),
			"model":    provider.Model().Name,
			"error":    err.Error(),
		})
	}
	if c.Fallback != nil && ctx.Err() == nil {
		c.logger.Info("using fallback coach", map[string]interface{}{"failures": len(errs)})
		return c.Fallback.SubmitForCoaching(ctx, payload)
	}
	return domain.CoachingResult{}, errors.Join(errs...)
}

func (c *ProviderCoach) ask(ctx context.Context, provider ports.Provider, payload domain.CoachingPayload) (domain.CoachingResult, error) {
	model := provider.Model()
	system, prompt, err := renderCoachingPrompt(model, payload)
	if err != nil {
		return domain.CoachingResult{}, err
	}

	c.logger.Debug("calling coaching provider", map[string]interface{}{
		"provider": provider.Name(),
		"model":    model.ModelID,
	})

	resp, err := provider.Generate(ctx, ports.ProviderRequest{
		System: system,
		Prompt: prompt,
		Model:  model,
	})
	if err != nil {
		return domain.CoachingResult{}, fmt.Errorf("%s generate: %w", model.Name, err)
	}

	result, err := ParseCoachingReply(resp.Reply)
	if err != nil {
		return domain.CoachingResult{}, fmt.Errorf("%s reply: %w", model.Name, err)
	}
	return result, nil
}

// ParseCoachingReply extracts and decodes the JSON object in a model reply,
// accepting fenced code blocks or bare objects surrounded by prose.
func ParseCoachingReply(reply string) (domain.CoachingResult, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return domain.CoachingResult{}, ErrNoJSON
	}

	var result domain.CoachingResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.CoachingResult{}, fmt.Errorf("decode coaching result: %w", err)
	}
	if strings.TrimSpace(result.ReportCard.Diagnosis) == "" {
		return domain.CoachingResult{}, errors.New("report card has no diagnosis")
	}
	if result.CognitiveShadow == nil {
		result.CognitiveShadow = []domain.Value{}
	}
	return result, nil
}

func extractJSONObject(content string) string {
	if block := extractCodeBlock(content); strings.HasPrefix(block, "{") {
		return block
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func extractCodeBlock(content string) string {
	start := strings.Index(content, "```")
	if start == -1 {
		return ""
	}
	suffix := content[start+3:]
	end := strings.Index(suffix, "```")
	if end == -1 {
		return ""
	}

	block := suffix[:end]
	if newline := strings.Index(block, "\n"); newline != -1 && !strings.Contains(block[:newline], "{") {
		block = block[newline+1:]
	}
	return strings.TrimSpace(block)
}

var _ ports.Coach = (*ProviderCoach)(nil)
