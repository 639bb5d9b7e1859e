package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/modgen/pkg/codegen/orchestrator"
	"github.com/platinummonkey/modgen/pkg/config"
	"github.com/platinummonkey/modgen/pkg/observability"
)

// environment is what every command needs before it can run the pipeline
type environment struct {
	cfg      *config.Config
	log      *logrus.Logger
	otel     *observability.OTelProviders
	recorder *observability.Recorder
}

// overrides are command line settings applied on top of the loaded config
type overrides struct {
	dialect string
	backend string
}

func (o overrides) apply(cfg *config.Config) {
	if o.dialect != "" {
		cfg.Generator.Dialect = o.dialect
	}
	if o.backend != "" {
		cfg.Generator.Backend = o.backend
	}
}

// commandContext is cancelled on interrupt or termination
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// setup loads the configuration and initializes logging, tracing and metrics
func setup(ctx context.Context, o overrides) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o != (overrides{}) {
		o.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	recorder := &observability.Recorder{}
	if cfg.Observability.MetricsFile != "" {
		recorder.Prom = observability.NewMetrics(nil)
	}
	if providers != nil {
		recorder.OTel, err = observability.NewOTelMetrics()
		if err != nil {
			return nil, err
		}
	}

	return &environment{
		cfg:      cfg,
		log:      log,
		otel:     providers,
		recorder: recorder,
	}, nil
}

// orchestrator builds a pipeline orchestrator from the loaded configuration
func (e *environment) orchestrator(opts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	runCfg, err := orchestrator.NewConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]orchestrator.Option{
		orchestrator.WithLogger(e.log),
		orchestrator.WithRecorder(e.recorder),
	}, opts...)
	return orchestrator.NewOrchestrator(runCfg, opts...)
}

// Close flushes telemetry
func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	observability.ShutdownOTel(ctx, e.otel, e.log)
}
