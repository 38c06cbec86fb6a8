package app

import (
	"encoding/hex"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/telacare/inference-core/config"
	"github.com/telacare/inference-core/internal/observability"
	"github.com/telacare/inference-core/services/availability"
	"github.com/telacare/inference-core/services/credentials"
	"github.com/telacare/inference-core/services/providers"
	"github.com/telacare/inference-core/services/routing"
	"github.com/telacare/inference-core/services/tasks"
	"github.com/telacare/inference-core/services/usage"
	"go.uber.org/zap"
)

// Dependencies holds the wired routing core. This is the central dependency
// injection point; host applications construct it once and register their
// backend adapters on the Registry.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Routing core
	Registry     *providers.Registry
	Availability *availability.Store
	Tasks        *tasks.Resolver
	Credentials  *credentials.Resolver
	Recorder     *usage.Recorder
	Router       *routing.Service
}

// Options customizes dependency wiring. Zero value uses the in-process
// defaults for every collaborator.
type Options struct {
	// KeyStore supplies per-user encrypted credentials; nil uses an
	// in-memory store (BYOK effectively disabled until keys are loaded)
	KeyStore credentials.KeyStore

	// Sink receives routing outcomes; nil logs them
	Sink usage.Sink

	// LocalReachable reports whether the local backend is reachable; nil
	// disables prefer-local promotion
	LocalReachable tasks.LocalReachableFunc

	// Registerer receives metric registrations; nil uses the default
	// prometheus registerer
	Registerer prometheus.Registerer
}

// NewDependencies creates and wires the routing core from configuration.
func NewDependencies(cfg *config.Config, logger *zap.Logger, opts Options) (*Dependencies, error) {
	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Registry:     providers.NewRegistry(),
		Availability: availability.NewStore(),
	}

	if cfg.Observability.MetricsEnabled {
		reg := opts.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		deps.Metrics = observability.NewMetrics(reg)
	}

	if err := deps.initTasks(cfg, opts.LocalReachable); err != nil {
		return nil, fmt.Errorf("failed to initialize task resolver: %w", err)
	}
	if err := deps.initCredentials(cfg, opts.KeyStore); err != nil {
		return nil, fmt.Errorf("failed to initialize credential resolver: %w", err)
	}
	if err := deps.initRecorder(opts.Sink); err != nil {
		return nil, fmt.Errorf("failed to initialize usage recorder: %w", err)
	}

	deps.Router = routing.NewService(
		cfg.Routing,
		deps.Registry,
		deps.Availability,
		deps.Tasks,
		deps.Credentials,
		deps.Recorder,
		deps.Metrics,
		logger,
	)

	logger.Info("routing core initialized",
		zap.Uint32("failure_threshold", cfg.Routing.FailureThreshold),
		zap.Duration("reset_timeout", cfg.Routing.ResetTimeout),
		zap.Bool("metrics_enabled", cfg.Observability.MetricsEnabled))

	return deps, nil
}

// initTasks builds the task resolver, applying the YAML routes override when
// one is configured
func (d *Dependencies) initTasks(cfg *config.Config, localReachable tasks.LocalReachableFunc) error {
	var routes map[tasks.Task]tasks.Route
	var costs map[string]float64

	if cfg.Routing.RoutesFile != "" {
		var err error
		routes, costs, err = tasks.LoadRoutes(cfg.Routing.RoutesFile)
		if err != nil {
			return fmt.Errorf("routes file %s: %w", cfg.Routing.RoutesFile, err)
		}
		d.Logger.Info("loaded routing table override",
			zap.String("file", cfg.Routing.RoutesFile))
	}

	d.Tasks = tasks.NewResolver(routes, costs, cfg.Backends.LocalBackend, localReachable)
	return nil
}

// initCredentials builds the BYOK resolver. Without an encryption key the
// resolver still serves system credentials; per-user keys need the key.
func (d *Dependencies) initCredentials(cfg *config.Config, store credentials.KeyStore) error {
	var decrypter credentials.Decrypter

	if cfg.Backends.EncryptionKey != "" {
		key, err := decodeEncryptionKey(cfg.Backends.EncryptionKey)
		if err != nil {
			return err
		}
		decrypter, err = credentials.NewAESGCMDecrypter(key)
		if err != nil {
			return err
		}
	} else {
		d.Logger.Warn("no credential encryption key configured, per-user keys disabled")
		store = nil
	}

	if store == nil && decrypter != nil {
		store = credentials.NewMemoryKeyStore()
	}

	d.Credentials = credentials.NewResolver(store, decrypter, cfg.Backends.SystemKeys, d.Logger)
	return nil
}

// initRecorder builds and starts the async usage recorder
func (d *Dependencies) initRecorder(sink usage.Sink) error {
	if sink == nil {
		sink = &usage.LogSink{Logger: d.Logger}
	}
	d.Recorder = usage.NewRecorder(sink, d.Logger, usage.DefaultConfig())
	return d.Recorder.Start()
}

// Close gracefully shuts down the routing core, draining buffered usage
// outcomes before returning
func (d *Dependencies) Close() error {
	d.Logger.Info("shutting down routing core")

	if d.Recorder != nil {
		d.Recorder.Stop()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}

// decodeEncryptionKey accepts a raw 32-byte key or its 64-char hex encoding
func decodeEncryptionKey(s string) ([]byte, error) {
	if len(s) == 64 {
		key, err := hex.DecodeString(s)
		if err == nil {
			return key, nil
		}
	}
	if len(s) == 32 {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("credential encryption key must be 32 bytes raw or 64 hex chars, got %d chars", len(s))
}
