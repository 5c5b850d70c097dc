package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
	"github.com/signalsfoundry/hetnet-optimizer/internal/observability"
	"github.com/signalsfoundry/hetnet-optimizer/internal/session"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
)

// Config keys. Each is also a flag and a HETNET_* environment variable
// (dashes become underscores).
const (
	keyConfig      = "config"
	keyLogLevel    = "log-level"
	keyLogFormat   = "log-format"
	keySolver      = "solver"
	keyLegacy      = "legacy"
	keyTimeout     = "timeout"
	keyBeta        = "beta"
	keyCategories  = "categories"
	keyOutput      = "output"
	keyMetricsFile = "metrics-file"
)

const localSolver = "local"

type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	log    logging.Logger

	shutdownTracing func(context.Context) error
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut, log: logging.Noop()}

	root := &cobra.Command{
		Use:   "hetnet",
		Short: "Rate allocation for overlapping wireless networks",
		Long: `hetnet reads a scenario of networks (circular coverage areas with a
category and a bandwidth ceiling) and devices, builds the allocation linear
program and solves it, balancing total throughput against the worst-served
device with the --beta weight.

Settings come from flags, HETNET_* environment variables or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			observability.ShutdownWithTimeout(cmd.Context(), a.shutdownTracing, a.log)
		},
	}

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "config file (yaml, json or toml)")
	pf.String(keyLogLevel, "warn", "debug, info, warn or error")
	pf.String(keyLogFormat, "text", "text or json")
	pf.String(keySolver, localSolver, `"local" or the host:port of a solver-server`)
	pf.Bool(keyLegacy, false, "use the legacy text response when talking to a solver-server")
	pf.Duration(keyTimeout, session.DefaultSolverTimeout, "solver round-trip timeout")
	pf.StringP(keyOutput, "o", "text", "text or json")

	root.AddCommand(
		newOptimizeCmd(a),
		newFormulateCmd(a),
		newSolveCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix("HETNET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	a.log = logging.New(logging.Config{
		Level:  v.GetString(keyLogLevel),
		Format: v.GetString(keyLogFormat),
		Output: a.errOut,
	})

	shutdown, err := observability.InitTracing(cmd.Context(), observability.TracingConfigFromEnv("hetnet-cli"), a.log)
	if err != nil {
		return err
	}
	a.shutdownTracing = shutdown
	return nil
}

// bindFlags binds every flag visible to the running command, inherited ones
// included, so a flag overrides env and config only when it was set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(f.Name, f)
		}
	})
	return err
}

// newSolver returns the configured backend and a close function.
func (a *app) newSolver() (solver.Solver, func(), error) {
	target := strings.TrimSpace(a.v.GetString(keySolver))
	if target == "" || target == localSolver {
		return solver.NewSimplex(), func() {}, nil
	}

	conn, err := solver.Dial(target)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = conn.Close() }
	if a.v.GetBool(keyLegacy) {
		return solver.NewLegacyClient(conn), closeFn, nil
	}
	return solver.NewClient(conn), closeFn, nil
}

func (a *app) timeout() time.Duration {
	if d := a.v.GetDuration(keyTimeout); d > 0 {
		return d
	}
	return session.DefaultSolverTimeout
}
