package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/retrace/assets"
	"github.com/doeshing/retrace/internal/domain"
)

const defaultSystemPrompt = `You are a programming tutor reviewing a student's repeated failing attempts.
You diagnose misconceptions instead of fixing code, and you always answer with a single JSON object.`

var defaultPromptTemplate = template.Must(template.New("coaching").Parse(assets.CoachingPromptTemplate))

// renderCoachingPrompt returns the system and user prompts for a payload. A
// model may override either message with its own templates.
func renderCoachingPrompt(model domain.ModelDefinition, payload domain.CoachingPayload) (string, string, error) {
	system := defaultSystemPrompt
	var user string

	for _, msg := range model.Prompt {
		content, err := executeTemplate(msg.Content, payload)
		if err != nil {
			return "", "", fmt.Errorf("render %s prompt for %s: %w", msg.Role, model.Name, err)
		}
		switch strings.ToLower(msg.Role) {
		case "system":
			system = strings.TrimSpace(content)
		case "user":
			user = strings.TrimSpace(content)
		}
	}

	if user == "" {
		var buf bytes.Buffer
		if err := defaultPromptTemplate.Execute(&buf, payload); err != nil {
			return "", "", fmt.Errorf("render coaching prompt: %w", err)
		}
		user = strings.TrimSpace(buf.String())
	}
	return system, user, nil
}

func executeTemplate(raw string, data domain.CoachingPayload) (string, error) {
	tmpl, err := template.New("prompt").Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
