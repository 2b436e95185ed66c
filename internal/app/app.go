// Package app wires configuration, logging, tracing and metrics around the
// request queue and the runtime client.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harun/profiler/internal/config"
	"github.com/harun/profiler/internal/logger"
	"github.com/harun/profiler/internal/observability"
	"github.com/harun/profiler/internal/tracing"
	"github.com/harun/profiler/pkg/profile"
	"github.com/harun/profiler/pkg/requestqueue"
	"github.com/harun/profiler/pkg/runtimeclient"
	"github.com/harun/profiler/pkg/transport"
	"github.com/rs/zerolog"
)

// App owns the long-lived components of one profiler process
type App struct {
	config *config.Config
	logger *logger.Logger

	queue     *requestqueue.Queue
	transport *transport.HTTP
	client    *runtimeclient.Client
	profiler  *profile.Profiler

	metricsServer   *http.Server
	metricsListener net.Listener

	tracer *tracing.Provider

	mu        sync.Mutex
	running   bool
	startTime time.Time
}

// Status is a snapshot of the app
type Status struct {
	Running bool
	Uptime  time.Duration
	Queue   requestqueue.Stats
	Metrics string
}

// New builds the component graph from cfg. It never contacts the runtime.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		config: cfg,
		logger: log,
	}

	observability.EnsureRegistered()
	if cfg.Tracing.Enabled {
		tp, err := tracing.Setup(context.Background(), tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			a.tracer = tp
		}
	}

	opts := []transport.Option{
		transport.WithTimeout(cfg.Runtime.Timeout()),
		transport.WithBearerToken(cfg.Runtime.Token),
		transport.WithLogger(log.Zerolog()),
	}
	a.transport = transport.NewHTTP(cfg.Runtime.URL, opts...)

	a.queue = requestqueue.New(a.transport,
		requestqueue.WithConcurrency(cfg.Queue.Concurrency),
		requestqueue.WithLogger(log.Zerolog()),
	)
	a.client = runtimeclient.New(a.queue, cfg.Runtime.InstanceID)
	a.profiler = profile.NewProfiler(a.client, profile.WithLogger(log.Zerolog()))

	for _, w := range config.NewValidator().Warnings(cfg) {
		log.Warn().Msg(w)
	}

	return a, nil
}

// Start starts the metrics listener when one is configured
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("app is already running")
	}

	logger := a.zerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()

	if addr := a.config.Metrics.Addr; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on metrics address %s: %w", addr, err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		a.metricsListener = ln
		a.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
		logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server started")
	}

	a.running = true
	a.startTime = time.Now()
	logger.Info().
		Str("runtime", a.transport.BaseURL()).
		Str("instance", a.client.InstanceID()).
		Int("concurrency", a.config.Queue.Concurrency).
		Msg("Profiler started")
	return nil
}

// Stop closes the queue, the metrics listener and the tracer provider
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	logger := a.zerolog()
	var errs []error

	if err := a.queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close request queue: %w", err))
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
		cancel()
		a.metricsServer = nil
		a.metricsListener = nil
	}

	if err := a.tracer.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracing: %w", err))
	}
	a.tracer = nil

	a.running = false
	logger.Info().Msg("Profiler stopped")
	return errors.Join(errs...)
}

// Status returns the current app status
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Status{
		Running: a.running,
		Queue:   a.queue.Stats(),
	}
	if a.running {
		s.Uptime = time.Since(a.startTime)
	}
	if a.metricsListener != nil {
		s.Metrics = a.metricsListener.Addr().String()
	}
	return s
}

// Config returns the configuration the app was built from
func (a *App) Config() *config.Config { return a.config }

// Queue returns the request queue
func (a *App) Queue() *requestqueue.Queue { return a.queue }

// Client returns the runtime client
func (a *App) Client() *runtimeclient.Client { return a.client }

// Profiler returns the table profiler
func (a *App) Profiler() *profile.Profiler { return a.profiler }

func (a *App) zerolog() zerolog.Logger {
	return a.logger.Zerolog().With().Str("component", "app").Logger()
}
