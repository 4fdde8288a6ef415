package app

import (
	"context"
	"io"
	"time"

	"github.com/doeshing/retrace/internal/application/doctor"
	"github.com/doeshing/retrace/internal/application/session"
	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/infrastructure/ai"
	"github.com/doeshing/retrace/internal/infrastructure/archive"
	"github.com/doeshing/retrace/internal/infrastructure/cache"
	"github.com/doeshing/retrace/internal/infrastructure/config"
	"github.com/doeshing/retrace/internal/pkg/logger"
	"github.com/doeshing/retrace/internal/ports"
)

// Options controls how the container is assembled.
type Options struct {
	ConfigPath string
	Verbose    bool
	LogOutput  io.Writer
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         ports.Logger
	Archive        ports.SessionArchive
	CacheStore     *cache.FileCache
	Coach          ports.Coach
	Sessions       *session.Manager
	DoctorService  *doctor.Service
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.GetLogLevel(), opts.Verbose, opts.LogOutput)

	archiveStore, err := archive.Open(cfg.Archive, log)
	if err != nil {
		return nil, err
	}

	cacheStore := cache.NewFileCache(cfg.GetCacheTTL(), cfg.GetCacheMaxEntries())
	coach := ai.NewFactory().NewCoach(cfg, log)
	if cfg.IsCacheEnabled() {
		cached := cache.NewCachedCoach(coach, cacheStore, cfg.Preferences.DefaultModel, log)
		cached.Timeout = time.Duration(cfg.GetTimeoutSeconds()) * time.Second
		coach = cached
	}

	var sessionArchive ports.SessionArchive
	if cfg.IsArchiveEnabled() {
		sessionArchive = archiveStore
	}
	manager := session.NewManager(coach, sessionArchive, log, session.OptionsFromConfig(cfg))

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Archive:        archiveStore,
		Cache:          cacheStore,
	}

	return &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Archive:        archiveStore,
		CacheStore:     cacheStore,
		Coach:          coach,
		Sessions:       manager,
		DoctorService:  doctorService,
	}, nil
}

// Close releases the archive handle.
func (c *Container) Close() error {
	if closer, ok := c.Archive.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
