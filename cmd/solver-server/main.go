// Command solver-server exposes the simplex LP solver over gRPC so the
// optimizer can run it as a separate process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
	"github.com/signalsfoundry/hetnet-optimizer/internal/observability"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
)

// Config holds the solver server's runtime settings. Every field can be set
// by flag; flags default to the matching SOLVER_* environment variable.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	EnableTLS      bool
	TLSCertPath    string
	TLSKeyPath     string
	LogLevel       string
	LogFormat      string
	Tolerance      float64
	ZeroTolerance  float64
	SolveTimeout   time.Duration
}

func configFromFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("solver-server", flag.ContinueOnError)
	var cfg Config
	fs.StringVar(&cfg.ListenAddress, "grpc-addr", envOr("SOLVER_GRPC_ADDR", ":50061"), "TCP address the solver gRPC server listens on")
	fs.StringVar(&cfg.MetricsAddress, "metrics-addr", envOr("SOLVER_METRICS_ADDR", ":9091"), "HTTP address for Prometheus /metrics (empty disables)")
	fs.BoolVar(&cfg.EnableTLS, "tls", envBool("SOLVER_TLS", false), "serve gRPC over TLS")
	fs.StringVar(&cfg.TLSCertPath, "tls-cert", os.Getenv("SOLVER_TLS_CERT"), "TLS certificate path")
	fs.StringVar(&cfg.TLSKeyPath, "tls-key", os.Getenv("SOLVER_TLS_KEY"), "TLS key path")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "text"), "text or json")
	fs.Float64Var(&cfg.Tolerance, "tolerance", solver.DefaultTolerance, "simplex tolerance")
	fs.Float64Var(&cfg.ZeroTolerance, "zero-tolerance", solver.DefaultZeroTolerance, "largest negative value snapped to zero")
	fs.DurationVar(&cfg.SolveTimeout, "solve-timeout", 30*time.Second, "upper bound on a single solve")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.EnableTLS && (cfg.TLSCertPath == "" || cfg.TLSKeyPath == "") {
		return Config{}, errors.New("-tls requires -tls-cert and -tls-key")
	}
	return cfg, nil
}

func main() {
	cfg, err := configFromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("hetnet-solver"), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "solver server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves on lis until ctx is cancelled, then stops gracefully.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	collector, err := observability.NewSolverCollector(nil)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			solver.RequestIDUnaryServerInterceptor(log),
			collector.UnaryServerInterceptor(),
			timeoutInterceptor(cfg.SolveTimeout),
		),
	}
	if cfg.EnableTLS {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			return fmt.Errorf("load TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	server := grpc.NewServer(opts...)

	backend := solver.NewSimplex(
		solver.WithTolerance(cfg.Tolerance),
		solver.WithZeroTolerance(cfg.ZeroTolerance),
	)
	solver.RegisterSolverServer(server, solver.NewService(backend, log, solver.WithStatusRecorder(collector)))

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting solver gRPC server",
			logging.String("addr", lis.Addr().String()),
			logging.Bool("tls", cfg.EnableTLS),
		)
		errCh <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}

	log.Info(context.Background(), "shutting down solver server")
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// timeoutInterceptor caps each call at d unless the caller set a tighter
// deadline.
func timeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

func serveMetrics(addr string, collector *observability.SolverCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
