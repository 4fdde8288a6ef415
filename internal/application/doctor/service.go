package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/retrace/internal/application/config"
	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Archive        ports.SessionArchive
	Cache          ports.CacheRepository
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	if s.ConfigProvider == nil {
		return domain.HealthReport{}, errors.New("doctor.Service dependencies not satisfied")
	}
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded format %s", cfg.ConfigFormatVersion)))

	if err := config.Validate(cfg); err != nil {
		checks = append(checks, fail("Config validation", err.Error()))
	} else {
		checks = append(checks, ok("Config validation", fmt.Sprintf("%d model(s), default %s", cfg.GetModelCount(), cfg.Preferences.DefaultModel)))
	}

	checks = append(checks, s.archiveCheck(ctx, cfg))
	checks = append(checks, s.cacheCheck(cfg))
	checks = append(checks, apiCheck(cfg.Models))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) archiveCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	if !cfg.IsArchiveEnabled() {
		return warn("Archive", "disabled")
	}
	if s.Archive == nil {
		return warn("Archive", "archive not initialized")
	}
	if _, err := s.Archive.List(ctx, 1, "", ""); err != nil {
		return fail("Archive", fmt.Sprintf("%s: %v", s.Archive.Path(), err))
	}
	return ok("Archive", fmt.Sprintf("%s (%s)", s.Archive.Path(), cfg.GetArchiveDriver()))
}

func (s *Service) cacheCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.IsCacheEnabled() {
		return warn("Coaching cache", "disabled")
	}
	if s.Cache == nil {
		return warn("Coaching cache", "cache not initialized")
	}
	dir := s.Cache.Dir()
	if err := checkWritable(dir); err != nil {
		return fail("Coaching cache", err.Error())
	}
	return ok("Coaching cache", dir)
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("%s not writable: %w", dir, err)
	}
	name := tmp.Name()
	tmp.Close()
	return os.Remove(filepath.Clean(name))
}

func apiCheck(models []domain.ModelDefinition) domain.HealthCheck {
	for _, model := range models {
		switch detectProvider(model.Endpoint) {
		case domain.ProviderKindAnthropic:
			if envMissing(model.AuthEnvVar, "ANTHROPIC_API_KEY") {
				return warn("API keys", fmt.Sprintf("%s: ANTHROPIC_API_KEY missing, heuristic coach will be used", model.Name))
			}
		case domain.ProviderKindOpenAI:
			if envMissing(model.AuthEnvVar, "OPENAI_API_KEY") {
				return warn("API keys", fmt.Sprintf("%s: OPENAI_API_KEY missing, heuristic coach will be used", model.Name))
			}
		}
	}
	return ok("API keys", "detected for configured providers")
}

func detectProvider(endpoint string) domain.ProviderKind {
	switch {
	case strings.Contains(endpoint, "anthropic.com"):
		return domain.ProviderKindAnthropic
	case strings.Contains(endpoint, "openai.com"):
		return domain.ProviderKindOpenAI
	case strings.Contains(endpoint, "11434"):
		return domain.ProviderKindOllama
	default:
		return domain.ProviderKindUnknown
	}
}

func envMissing(primary, fallback string) bool {
	if primary != "" && os.Getenv(primary) != "" {
		return false
	}
	if fallback != "" && os.Getenv(fallback) != "" {
		return false
	}
	return true
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
