package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/hetnet-optimizer/core"
	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
	"github.com/signalsfoundry/hetnet-optimizer/internal/observability"
	"github.com/signalsfoundry/hetnet-optimizer/internal/session"
	"github.com/signalsfoundry/hetnet-optimizer/model"
)

const defaultBeta = 0.5

func newOptimizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize SCENARIO",
		Short: "Allocate rates for every device in a scenario file",
		Example: `  hetnet optimize scenario.yaml --beta 0.3
  hetnet optimize scenario.yaml --solver localhost:50061 --categories red,blue -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOptimize(cmd, args[0])
		},
	}
	cmd.Flags().Float64(keyBeta, defaultBeta, "fairness weight in [0,1]; 0 maximises throughput, 1 maximises the worst device's rate")
	cmd.Flags().StringSlice(keyCategories, nil, "only consider networks of these categories (red, green, blue)")
	cmd.Flags().String(keyMetricsFile, "", "write Prometheus metrics for the pass to this file")
	return cmd
}

func (a *app) runOptimize(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewOptimizerCollector(reg)
	if err != nil {
		return err
	}

	cm := core.NewCoverageModel(core.WithMetricsRecorder(metrics))
	scenario, err := loadScenarioFile(cm, path)
	if err != nil {
		return err
	}

	beta := defaultBeta
	if scenario.Beta != nil {
		beta = *scenario.Beta
	}
	if a.v.IsSet(keyBeta) {
		beta = a.v.GetFloat64(keyBeta)
	}

	categories, err := parseCategories(a.v.GetStringSlice(keyCategories))
	if err != nil {
		return err
	}

	slv, closeSolver, err := a.newSolver()
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	defer closeSolver()

	sess := session.New(cm, slv,
		session.WithConfig(session.Config{SolverTimeout: a.timeout(), Categories: categories}),
		session.WithLogger(a.log),
		session.WithMetrics(metrics),
	)
	res, passErr := sess.Optimize(ctx, beta)

	if file := a.v.GetString(keyMetricsFile); file != "" {
		if err := prometheus.WriteToTextfile(file, reg); err != nil {
			a.log.Warn(ctx, "could not write metrics file", logging.String("path", file), logging.Err(err))
		}
	}
	if passErr != nil {
		return errors.New(session.UserMessage(passErr))
	}

	return writeReport(a.out, a.v.GetString(keyOutput), newReport(cm, res))
}

func loadScenarioFile(cm *core.CoverageModel, path string) (*core.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadScenario(cm, f)
}

func parseCategories(names []string) ([]model.Category, error) {
	out := make([]model.Category, 0, len(names))
	for _, name := range names {
		cat, err := model.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

func newFormulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formulate SCENARIO",
		Short: "Print the solver problem text for a scenario without solving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := core.NewCoverageModel()
			scenario, err := loadScenarioFile(cm, args[0])
			if err != nil {
				return err
			}
			beta := defaultBeta
			if scenario.Beta != nil {
				beta = *scenario.Beta
			}
			if a.v.IsSet(keyBeta) {
				beta = a.v.GetFloat64(keyBeta)
			}
			categories, err := parseCategories(a.v.GetStringSlice(keyCategories))
			if err != nil {
				return err
			}

			w, err := lp.WeightsFromBeta(beta)
			if err != nil {
				return err
			}
			problem, err := lp.Formulate(cm.SnapshotWith(core.SnapshotOptions{Categories: categories}), w)
			if err != nil {
				return errors.New(session.UserMessage(err))
			}
			_, err = fmt.Fprintln(a.out, problem.Text())
			return err
		},
	}
	cmd.Flags().Float64(keyBeta, defaultBeta, "fairness weight in [0,1]")
	cmd.Flags().StringSlice(keyCategories, nil, "only consider networks of these categories")
	return cmd
}
