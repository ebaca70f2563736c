// Package cli wires configuration into a running support agent for the
// switchboard command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	natsadapter "github.com/aretw0/switchboard/pkg/adapters/nats"
	"github.com/aretw0/switchboard/pkg/adapters/openai"
	redisadapter "github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/capabilities"
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/knowledge"
	"github.com/aretw0/switchboard/pkg/observability"
	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// ErrNoQueue is returned when the configured handoff driver cannot list tickets.
var ErrNoQueue = errors.New("handoff driver does not keep a queue")

// App is a fully wired agent.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *switchboard.Engine
	Metrics *observability.Metrics
	// Queue is nil when the handoff driver only logs.
	Queue ports.HandoffQueue

	closers []func() error
}

// Build creates the engine and its collaborators from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	llm, err := openai.NewClient(openai.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.Timeouts.Completion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}
	if err := app.build(ctx, llm, llm); err != nil {
		return nil, err
	}
	return app, nil
}

// BuildWith is Build with explicit completion and embedding services.
func BuildWith(ctx context.Context, cfg *config.Config, logger *slog.Logger, completer ports.Completer, embedder knowledge.Embedder) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	if err := app.build(ctx, completer, embedder); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, completer ports.Completer, embedder knowledge.Embedder) error {
	cfg := a.Config

	var redisClient *backend.Client
	if cfg.Handoff.Driver == config.HandoffRedis || cfg.Knowledge.Cache {
		redisClient = redisadapter.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, redisClient.Close)
	}

	sink, err := a.handoff(redisClient)
	if err != nil {
		a.Close()
		return err
	}

	retriever, err := a.retriever(embedder, redisClient)
	if err != nil {
		a.Close()
		return err
	}

	registry := capability.NewRegistry()
	err = capabilities.Register(registry, capabilities.Config{
		Weather:  capabilities.WeatherConfig{APIKey: cfg.Capabilities.Weather.APIKey, BaseURL: cfg.Capabilities.Weather.BaseURL},
		Calendar: capabilities.CalendarConfig{Token: cfg.Capabilities.Calendar.Token, BaseURL: cfg.Capabilities.Calendar.BaseURL, CalendarID: cfg.Capabilities.Calendar.CalendarID},
		Search:   capabilities.SearchConfig{APIKey: cfg.Capabilities.Search.APIKey, BaseURL: cfg.Capabilities.Search.BaseURL},
	}, sink, capabilities.Options{Logger: a.Logger})
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to register capabilities: %w", err)
	}

	a.Metrics = observability.NewMetrics(prometheus.NewRegistry())
	hooks := domain.ComposeHooks(a.Metrics.Hooks(), debugHooks(a.Logger))

	opts := []switchboard.Option{
		switchboard.WithLogger(a.Logger),
		switchboard.WithRegistry(registry),
		switchboard.WithLifecycleHooks(hooks),
		switchboard.WithTimeouts(switchboard.Timeouts{
			Retrieval:  cfg.Timeouts.Retrieval,
			Completion: cfg.Timeouts.Completion,
			Capability: cfg.Timeouts.Capability,
		}),
		switchboard.WithLenientParsing(cfg.Classifier.Lenient),
		switchboard.WithRetrievalDepth(cfg.Knowledge.Depth),
	}
	if retriever != nil {
		opts = append(opts, switchboard.WithRetriever(retriever))
	}
	if cfg.Classifier.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Classifier.Timezone)
		if err != nil {
			a.Close()
			return fmt.Errorf("invalid timezone: %w", err)
		}
		opts = append(opts, switchboard.WithLocation(loc))
	}

	a.Engine, err = switchboard.New(completer, opts...)
	if err != nil {
		a.Close()
		return err
	}
	return nil
}

func (a *App) handoff(redisClient *backend.Client) (ports.HandoffSink, error) {
	cfg := a.Config

	var sink ports.HandoffSink
	switch cfg.Handoff.Driver {
	case config.HandoffMemory:
		q := memory.NewHandoffQueue()
		a.Queue, sink = q, q
	case config.HandoffRedis:
		q := redisadapter.NewHandoffQueue(redisClient, redisadapter.WithPrefix(cfg.Redis.Prefix), redisadapter.WithMaxLen(cfg.Handoff.MaxLen))
		a.Queue, sink = q, q
	case config.HandoffLog:
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownDriver, cfg.Handoff.Driver)
	}

	var masker *middleware.Masker
	if cfg.Handoff.Redact {
		var err error
		if masker, err = middleware.NewMasker(cfg.Handoff.RedactPatterns); err != nil {
			return nil, err
		}
	}

	if a.Queue != nil {
		mws, err := queueMiddleware(cfg, masker)
		if err != nil {
			return nil, err
		}
		a.Queue = middleware.Chain(a.Queue, mws...)
		sink = a.Queue
	}

	if !cfg.Handoff.Broadcast {
		return sink, nil
	}
	nc, broadcaster, err := natsadapter.Connect(cfg.NATS.URL, natsadapter.WithSubject(cfg.NATS.Subject))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, nc.Drain)

	var published ports.HandoffSink = broadcaster
	if masker != nil {
		published = masker.Sink(broadcaster)
	}
	if sink == nil {
		return published, nil
	}
	return natsadapter.Fanout{sink, published}, nil
}

// queueMiddleware masks tickets before sealing them.
func queueMiddleware(cfg *config.Config, masker *middleware.Masker) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if masker != nil {
		mws = append(mws, masker.Middleware())
	}
	if cfg.Handoff.EncryptionKey == "" {
		return mws, nil
	}

	enc := middleware.EncryptionConfig{}
	var err error
	if enc.ActiveKey, err = middleware.ParseKey(cfg.Handoff.EncryptionKey); err != nil {
		return nil, err
	}
	for _, k := range cfg.Handoff.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, err
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	seal, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return append(mws, seal), nil
}

func (a *App) retriever(embedder knowledge.Embedder, redisClient *backend.Client) (ports.Retriever, error) {
	cfg := a.Config
	if cfg.Knowledge.Index == "" {
		return nil, nil
	}

	store := knowledge.NewStore(SelectEmbedder(cfg, embedder))
	if err := store.LoadFile(cfg.Knowledge.Index); err != nil {
		return nil, fmt.Errorf("failed to load knowledge index: %w", err)
	}
	a.Logger.Info("knowledge index loaded", "path", cfg.Knowledge.Index, "chunks", store.Len())

	if !cfg.Knowledge.Cache {
		return store, nil
	}
	return redisadapter.NewCachedRetriever(store, redisClient, a.Logger,
		redisadapter.WithPrefix(cfg.Redis.Prefix),
		redisadapter.WithTTL(cfg.Knowledge.CacheTTL),
	), nil
}

// SelectEmbedder returns the hashing embedder when configured, otherwise remote.
func SelectEmbedder(cfg *config.Config, remote knowledge.Embedder) knowledge.Embedder {
	if cfg.Knowledge.Embedder == config.EmbedderHash || remote == nil {
		return knowledge.HashEmbedder{}
	}
	return remote
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
