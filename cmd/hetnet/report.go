package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/signalsfoundry/hetnet-optimizer/core"
	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
	"github.com/signalsfoundry/hetnet-optimizer/internal/session"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
	"github.com/signalsfoundry/hetnet-optimizer/model"
)

type report struct {
	Alpha      float64        `json:"alpha"`
	Beta       float64        `json:"beta"`
	Objective  float64        `json:"objective"`
	Throughput float64        `json:"throughput"`
	Fairness   float64        `json:"fairness"`
	Devices    []deviceReport `json:"devices"`
}

type deviceReport struct {
	ID       model.DeviceID  `json:"id"`
	Position *model.Position `json:"position,omitempty"`
	Total    float64         `json:"total"`
	Links    []linkReport    `json:"links"`
}

type linkReport struct {
	Network  model.NetworkID `json:"network"`
	Category string          `json:"category,omitempty"`
	Rate     float64         `json:"rate"`
}

// newReport lists every device from the pass snapshot with its non-zero
// links. Positions and categories come from the live model and are left out
// for entities removed since the pass started.
func newReport(cm *core.CoverageModel, res *session.Result) report {
	r := report{
		Alpha:      res.Weights.Alpha,
		Beta:       res.Weights.Beta,
		Objective:  res.Solution.Objective,
		Throughput: res.Decoded.Throughput,
		Fairness:   res.Decoded.Fairness,
	}
	assignment := res.Assignment()
	for _, u := range res.Snapshot.DeviceIDs {
		dr := deviceReport{ID: u, Total: assignment.DeviceTotal(u), Links: []linkReport{}}
		if d, err := cm.Device(u); err == nil {
			pos := d.Position
			dr.Position = &pos
		}
		for _, n := range res.Snapshot.NetworkIDs {
			rate := assignment[u][n]
			if rate <= 0 {
				continue
			}
			lr := linkReport{Network: n, Rate: rate}
			if net, err := cm.Network(n); err == nil {
				lr.Category = net.Category.String()
			}
			dr.Links = append(dr.Links, lr)
		}
		r.Devices = append(r.Devices, dr)
	}
	return r
}

func writeReport(w io.Writer, format string, r report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "alpha=%s beta=%s objective=%s throughput=%s fairness=%s\n",
		lp.FormatNumber(r.Alpha), lp.FormatNumber(r.Beta), formatRate(r.Objective),
		formatRate(r.Throughput), formatRate(r.Fairness))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tPOSITION\tNETWORK\tRATE")
	for _, d := range r.Devices {
		pos := "-"
		if d.Position != nil {
			pos = fmt.Sprintf("(%s, %s)", lp.FormatNumber(d.Position.X), lp.FormatNumber(d.Position.Y))
		}
		if len(d.Links) == 0 {
			fmt.Fprintf(tw, "%d\t%s\t-\t0\n", d.ID, pos)
			continue
		}
		for _, l := range d.Links {
			name := fmt.Sprintf("%d", l.Network)
			if l.Category != "" {
				name += " (" + l.Category + ")"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, pos, name, formatRate(l.Rate))
		}
	}
	return tw.Flush()
}

func writeSolution(w io.Writer, format string, sol *solver.Solution) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Status    string    `json:"status"`
			Code      int       `json:"code"`
			Objective float64   `json:"objective"`
			Values    []float64 `json:"values"`
		}{sol.Status.String(), int(sol.Status), sol.Objective, sol.Values})
	}
	fmt.Fprintf(w, "status=%s code=%d\n", sol.Status, int(sol.Status))
	if sol.Status != solver.StatusSolved {
		return nil
	}
	fmt.Fprintf(w, "objective=%s\n", formatRate(sol.Objective))
	for i, v := range sol.Values {
		fmt.Fprintf(w, "x%d=%s\n", i, formatRate(v))
	}
	return nil
}

func formatRate(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return fmt.Sprintf("%.3f", v)
}
