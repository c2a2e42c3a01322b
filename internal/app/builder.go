package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/contacts-server/internal/api"
	"github.com/stacklok/contacts-server/internal/app/storage"
	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/readiness"
	"github.com/stacklok/contacts-server/internal/service"
	dbservice "github.com/stacklok/contacts-server/internal/service/db"
	"github.com/stacklok/contacts-server/internal/status"
	"github.com/stacklok/contacts-server/internal/telemetry"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// ContactsAppOptions is a function that configures the contacts app builder
type ContactsAppOptions func(*contactsAppConfig) error

// contactsAppConfig collects everything needed to build a ContactsApp
// It supports dependency injection for testing while providing sensible defaults for production
type contactsAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	gateOptions    []readiness.Option

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...ContactsAppOptions) (*contactsAppConfig, error) {
	cfg := &contactsAppConfig{
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetAddress()
	}
	if cfg.requestTimeout == 0 {
		cfg.requestTimeout = cfg.config.GetRequestTimeout()
	}

	return cfg, nil
}

// NewContactsApp creates a new ContactsApp. No component touches the network
// here; the readiness gate and the schema initializer run in Start.
func NewContactsApp(
	ctx context.Context,
	opts ...ContactsAppOptions,
) (*ContactsApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	// Create storage factory (single decision point for database vs memory)
	if cfg.storageFactory == nil {
		var factoryOpts []storage.DatabaseFactoryOption
		if cfg.tracerProvider != nil {
			factoryOpts = append(factoryOpts, storage.WithTracer(cfg.tracerProvider.Tracer(dbservice.ServiceTracerName)))
		}
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config, factoryOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	gate, err := buildReadinessGate(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build readiness gate: %w", err)
	}

	contactService, err := buildServiceComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	startup := status.NewStartup()

	httpServer, err := buildHTTPServer(ctx, cfg, contactService, startup)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	return &ContactsApp{
		config: cfg.config,
		components: &AppComponents{
			ContactService: contactService,
			StorageFactory: cfg.storageFactory,
			Gate:           gate,
			Startup:        startup,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithGateOptions appends readiness gate options after those derived from config
func WithGateOptions(opts ...readiness.Option) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.gateOptions = append(cfg.gateOptions, opts...)
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and readiness metrics
func WithMeterProvider(mp metric.MeterProvider) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for HTTP and store spans
func WithTracerProvider(tp trace.TracerProvider) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) ContactsAppOptions {
	return func(cfg *contactsAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildReadinessGate builds the startup gate from the readiness config
func buildReadinessGate(ctx context.Context, b *contactsAppConfig) (*readiness.Gate, error) {
	prober, err := b.storageFactory.CreateProber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create prober: %w", err)
	}

	opts := []readiness.Option{
		readiness.WithMaxAttempts(b.config.Readiness.GetMaxAttempts()),
		readiness.WithDelay(b.config.Readiness.GetDelay()),
	}

	if b.meterProvider != nil {
		readinessMetrics, err := telemetry.NewReadinessMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create readiness metrics: %w", err)
		}
		if readinessMetrics != nil {
			opts = append(opts, readiness.WithMetrics(readinessMetrics))
			slog.Info("Readiness metrics enabled")
		}
	}
	if b.tracerProvider != nil {
		opts = append(opts, readiness.WithTracer(b.tracerProvider.Tracer(readiness.TracerName)))
	}

	return readiness.NewGate(prober, append(opts, b.gateOptions...)...), nil
}

// buildServiceComponents builds the contact service
func buildServiceComponents(
	ctx context.Context,
	b *contactsAppConfig,
) (service.ContactService, error) {
	slog.Info("Initializing service components")

	svc, err := b.storageFactory.CreateContactService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact service: %w", err)
	}

	slog.Info("Service components initialized successfully")
	return svc, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *contactsAppConfig,
	svc service.ContactService,
	startup *status.Startup,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	middlewares := b.middlewares
	if middlewares == nil {
		middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middlewares go first so that they observe every request
	var instrumentation []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		instrumentation = append(instrumentation, telemetry.TracingMiddleware(b.tracerProvider))
		slog.Info("HTTP tracing middleware enabled")
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			instrumentation = append(instrumentation, metricsMiddleware)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	middlewares = append(instrumentation, middlewares...)

	router := api.NewServer(svc, startup,
		api.WithMiddlewares(middlewares...),
		api.WithMetricsHandler(b.metricsHandler),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
