// Command mpccoordinator runs the MPC coordination server: a single
// WebSocket endpoint speaking JSON-RPC 2.0 that rendezvous clients into
// groups and sessions for threshold keygen and signing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/coinfabrik/mpc-coordinator/internal/config"
	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/dispatch"
	"github.com/coinfabrik/mpc-coordinator/internal/metrics"
	appversion "github.com/coinfabrik/mpc-coordinator/internal/version"
	"github.com/coinfabrik/mpc-coordinator/internal/wsserver"
)

// shutdownTimeout bounds how long graceful shutdown waits for in-flight
// HTTP connections to drain.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logger := newLogger(cfg.Log)
	logger.Info("mpc-coordinator starting",
		slog.String("version", appversion.Version),
		slog.String("server_addr", cfg.Server.Addr()),
		slog.String("metrics_addr", cfg.Metrics.Addr))

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	registry := coordinator.NewRegistry(logger, coordinator.WithMetrics(collector))
	handler := dispatch.NewServiceHandler(logger)

	if err := runServers(cfg, registry, handler, reg, logger); err != nil {
		logger.Error("mpc-coordinator exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("mpc-coordinator stopped")
	return 0
}

// runServers runs the WebSocket server and the metrics server side by
// side with coordinated graceful shutdown on SIGINT/SIGTERM.
func runServers(
	cfg *config.Config,
	registry *coordinator.Registry,
	handler *dispatch.ServiceHandler,
	reg *prometheus.Registry,
	logger *slog.Logger,
) error {
	wsSrv := newWSServer(cfg.Server, registry, handler, logger)
	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("websocket server listening", slog.String("addr", cfg.Server.Addr()))
		return listenAndServe(gCtx, &lc, wsSrv, cfg.Server.Addr())
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr), slog.String("path", cfg.Metrics.Path))
		return listenAndServe(gCtx, &lc, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(logger, wsSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

func gracefulShutdown(logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newWSServer(cfg config.ServerConfig, registry *coordinator.Registry, handler *dispatch.ServiceHandler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", wsserver.NewServer(registry, handler, logger))
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
