package main

import (
	"context"
	"errors"
	"fmt"
	"formgate/internal/api"
	"formgate/internal/config"
	"formgate/internal/logger"
	"formgate/internal/models"
	"formgate/internal/notify"
	"formgate/internal/observability"
	"formgate/internal/ratelimit"
	"formgate/internal/submission"
	"formgate/internal/version"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	// Load configuration
	cfg, err := config.Load(opts.configFile, opts.envFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}

	ver := version.GetInfo()

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		log.Error("Failed to initialize observability", "error", err)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown observability", "error", err)
		}
	}()

	gw, err := newGateway(cfg, otelProvider, log)
	if err != nil {
		log.Error("Failed to initialize gateway", "error", err)
		return err
	}
	defer gw.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	var metricsLn net.Listener
	if cfg.Metrics.Enabled {
		metricsLn, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Metrics.Port))
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to listen for metrics: %w", err)
		}
	}

	return serve(ctx, cfg, gw.router, otelProvider, ln, metricsLn, log)
}

// gateway holds the wired request pipeline.
type gateway struct {
	router  http.Handler
	limiter *ratelimit.MemoryLimiter
	metrics *observability.SubmissionMetrics
}

func newGateway(cfg *models.Config, provider *observability.Provider, log *slog.Logger) (*gateway, error) {
	instrumentOpts := []observability.InstrumentOption{
		observability.WithMeterProvider(provider.MeterProvider()),
		observability.WithTracerProvider(provider.TracerProvider()),
	}

	transport, err := notify.New(cfg.Notifier)
	if err != nil {
		return nil, err
	}
	providerName := cfg.Notifier.Provider
	if providerName == "" {
		providerName = models.NotifierResend
	}
	if !transport.Enabled() {
		log.Warn("Notifier has no credential; submissions will be accepted without email",
			"provider", providerName)
	}
	notifier, err := observability.NewInstrumentedNotifier(transport, providerName, instrumentOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument notifier: %w", err)
	}

	limiter := ratelimit.NewMemoryLimiter(ratelimit.WithSweepProbability(cfg.RateLimit.SweepProbability))

	metrics, err := observability.NewSubmissionMetrics(limiter, instrumentOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission metrics: %w", err)
	}

	service := submission.NewService(limiter,
		submission.WithNotifier(notifier, cfg.Notifier.Recipient),
		submission.WithLogger(log),
	)

	contact := submission.NewContactForm(ratelimit.Policy{
		Window:      cfg.RateLimit.Contact.Window,
		MaxRequests: cfg.RateLimit.Contact.MaxRequests,
	})
	subscribe := submission.NewSubscribeForm(ratelimit.Policy{
		Window:      cfg.RateLimit.Subscribe.Window,
		MaxRequests: cfg.RateLimit.Subscribe.MaxRequests,
	})

	handlers := api.NewHandlers(service, contact, subscribe,
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithLimiterStats(limiter),
		api.WithOutcomeRecorder(metrics),
		api.WithLogger(log),
	)

	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	return &gateway{
		router:  api.SetupRoutes(handlers, cfg, routeOpts...),
		limiter: limiter,
		metrics: metrics,
	}, nil
}

// Close waits for background sweeps and unregisters metric callbacks.
func (g *gateway) Close() error {
	g.limiter.Wait()
	return g.metrics.Close()
}

// serve runs the public server on ln and, when metricsLn is non-nil, the
// metrics server on metricsLn until ctx is done or either server fails.
func serve(ctx context.Context, cfg *models.Config, handler http.Handler, provider *observability.Provider, ln, metricsLn net.Listener, log *slog.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if cfg.Server.TLSEnabled {
			log.Info("Starting HTTPS server", "addr", ln.Addr().String())
			err = server.ServeTLS(ln, cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			log.Info("Starting HTTP server", "addr", ln.Addr().String())
			err = server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if metricsLn != nil {
		metricsServer := observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, provider)
		g.Go(func() error {
			return metricsServer.Serve(gctx, metricsLn, shutdownTimeout)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server shutdown complete")
	return nil
}
