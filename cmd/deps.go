package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/ai"
	"github.com/in-c0/langtern/internal/ai/gemini"
	"github.com/in-c0/langtern/internal/cache"
	"github.com/in-c0/langtern/internal/catalog"
	"github.com/in-c0/langtern/internal/events"
	"github.com/in-c0/langtern/internal/logger"
	"github.com/in-c0/langtern/internal/matching"
	"github.com/in-c0/langtern/internal/secrets"
	"github.com/in-c0/langtern/internal/translation"
)

// services is everything the serve, match and translate commands share.
type services struct {
	store        catalog.Store
	cached       *catalog.CachedStore
	orchestrator *matching.Orchestrator
	translator   *translation.Translator
	publisher    events.Publisher

	closers []func() error
}

func newServices(ctx context.Context, config *Config, logger *zap.Logger) (*services, error) {
	s := &services{}

	store, closeStore, err := openStore(ctx, config.Storage)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.closers = append(s.closers, closeStore)

	if config.Cache.Enabled {
		c, err := openCache(ctx, config.Cache)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, c.Close)
		s.cached = catalog.NewCachedStore(store, c, config.Cache.TTL, logger.Named("catalog"))
		s.store = s.cached
	}

	completer, err := newCompleter(ctx, config, logger)
	if err != nil {
		logger.Warn("completion service unavailable, using fallback scoring and passthrough translation", zap.Error(err))
	}

	var ranker matching.Ranker
	if completer != nil && config.AI.Enabled {
		ranker = ai.NewRanker(completer, logger.Named("ranker"), config.AI.TopN, config.AI.MaxLogLength)
	}

	s.publisher = newPublisher(config.Events, logger)
	s.closers = append(s.closers, s.publisher.Close)

	s.orchestrator = matching.NewOrchestrator(s.store, ranker, s.publisher, logger.Named("matching"), matching.Options{
		AIEnabled: config.AI.Enabled,
		AITimeout: config.AI.Timeout,
	})
	s.translator = translation.NewTranslator(completer, logger.Named("translation"), config.AI.MaxLogLength, config.AI.Timeout)

	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (c *Config) translationSettings() translation.Settings {
	return translation.Settings{
		Enabled:    c.Translation.Enabled,
		AutoDetect: c.Translation.AutoDetect,
	}
}

func openStore(ctx context.Context, cfg StorageConfig) (catalog.Store, func() error, error) {
	dsn, err := secrets.Load(secrets.Source{
		Name:  "storage dsn",
		Value: cfg.DSN,
		File:  cfg.DSNFile,
		Env:   "DATABASE_URL",
	})
	if err != nil {
		return nil, nil, err
	}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "postgres", "postgresql", "pgx":
		store, err := catalog.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { store.Close(); return nil }, nil
	case "sqlite", "":
		store, err := catalog.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func openCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		return cache.NewRedis(ctx, url, app+":")
	}
	return cache.NewMemory(), nil
}

// newCompleter returns a nil Completer when neither ranking nor translation needs one.
func newCompleter(ctx context.Context, config *Config, log *zap.Logger) (ai.Completer, error) {
	if !config.AI.Enabled && !config.Translation.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  config.AI.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:             config.AI.Gemini.Model,
		Temperature:       config.AI.Gemini.Temperature,
		RequestsPerMinute: config.AI.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}

	logger.WithCommonFields(log, gemini.Provider, generator.Model()).Info("completion service configured")

	return generator, nil
}

func newPublisher(cfg EventsConfig, log *zap.Logger) events.Publisher {
	url := strings.TrimSpace(cfg.NATSURL)
	if url == "" {
		return events.Nop{}
	}

	pub, err := events.NewNATSPublisher(url, cfg.Subject, log.Named("events"))
	if err != nil {
		log.Warn("match events disabled", zap.String("nats_url", url), zap.Error(err))
		return events.Nop{}
	}
	return pub
}
