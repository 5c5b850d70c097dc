package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
	"github.com/signalsfoundry/hetnet-optimizer/internal/session"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
)

func newSolveCmd(a *app) *cobra.Command {
	var frame bool
	cmd := &cobra.Command{
		Use:   "solve [PROBLEM]",
		Short: "Solve raw problem text, read from the argument or stdin",
		Example: `  hetnet solve "5 4 3;2 3 1 5,4 1 2 11,3 4 2 8,;;"
  hetnet formulate scenario.yaml | hetnet solve --frame`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := problemText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			slv, closeSolver, err := a.newSolver()
			if err != nil {
				return errors.New(session.UserMessage(err))
			}
			defer closeSolver()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()
			ctx, log := logging.WithPassLogger(ctx, a.log)

			sol, err := slv.Solve(ctx, text)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("%w: %w", solver.ErrSolverTimeout, err)
				}
				log.Warn(ctx, "solve failed", logging.Err(err))
				return errors.New(session.UserMessage(err))
			}
			log.Debug(ctx, "solve finished", logging.String("status", sol.Status.String()))

			if frame {
				if sol.Status != solver.StatusSolved {
					return errors.New(session.UserMessage(sol.Status.Err()))
				}
				_, err = io.WriteString(a.out, lp.FormatLegacyResponse(sol.Values))
				return err
			}
			return writeSolution(a.out, a.v.GetString(keyOutput), sol)
		},
	}
	cmd.Flags().BoolVar(&frame, "frame", false, "print the answer in the legacy <solution> text frame")
	return cmd
}

func problemText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no problem text given")
	}
	return text, nil
}
