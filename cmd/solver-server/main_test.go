package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
)

func TestSolverServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := Config{
		ListenAddress:  lis.Addr().String(),
		MetricsAddress: "",
		LogLevel:       "warn",
		LogFormat:      "text",
		Tolerance:      solver.DefaultTolerance,
		ZeroTolerance:  solver.DefaultZeroTolerance,
		SolveTimeout:   time.Second,
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(runCtx, cfg, log, lis)
	}()

	conn, err := solver.Dial(cfg.ListenAddress)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	sol, err := solver.NewClient(conn).Solve(ctx, "5 4 3;2 3 1 5,4 1 2 11,3 4 2 8,;;")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != solver.StatusSolved || sol.Objective < 13-1e-9 || sol.Objective > 13+1e-9 {
		t.Fatalf("unexpected solution: %+v", sol)
	}

	stop()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestConfigFromFlags(t *testing.T) {
	t.Setenv("SOLVER_GRPC_ADDR", "127.0.0.1:7000")
	t.Setenv("SOLVER_TLS", "false")

	cfg, err := configFromFlags([]string{"-log-format", "json", "-solve-timeout", "3s"})
	if err != nil {
		t.Fatalf("configFromFlags: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:7000" {
		t.Fatalf("ListenAddress = %q, want env default", cfg.ListenAddress)
	}
	if cfg.LogFormat != "json" || cfg.SolveTimeout != 3*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}

	if _, err := configFromFlags([]string{"-tls"}); err == nil {
		t.Fatalf("expected -tls without cert paths to fail")
	}
}
