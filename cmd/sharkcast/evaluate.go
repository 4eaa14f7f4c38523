package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/sharkcast/report"
)

type evaluateOptions struct {
	csv     string
	sqlite  string
	plotDir string
	top     int
}

func newEvaluateCmd(a *app) *cobra.Command {
	var o evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Train every shark and report held-out errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEvaluate(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.csv, "out-csv", "", "write the error table to this CSV (overrides output.csv)")
	f.StringVar(&o.sqlite, "sqlite", "", "append the error table to this SQLite database (overrides output.sqlite)")
	f.StringVar(&o.plotDir, "plot-dir", "", "write held-out track plots here (overrides output.plot_dir)")
	f.IntVar(&o.top, "top", 0, "print only the n lowest-error sharks (0 prints all)")
	return cmd
}

func (a *app) runEvaluate(cmd *cobra.Command, o evaluateOptions) error {
	out := a.cfg.Output
	flags := cmd.Flags()
	if flags.Changed("out-csv") {
		out.CSV = o.csv
	}
	if flags.Changed("sqlite") {
		out.SQLite = o.sqlite
	}
	if flags.Changed("plot-dir") {
		out.PlotDir = o.plotDir
	}

	sess, stop, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	reg := sess.Registry()
	sum := sess.Summary()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d sharks: %d trained, %d skipped, %d failed\n", sum.Individuals, sum.Trained, sum.Skipped, sum.Failed)
	if err := report.WriteSummary(w, reg.Best(o.top)); err != nil {
		return err
	}

	all := reg.All()
	if out.CSV != "" {
		if err := report.SaveErrorsCSV(out.CSV, all); err != nil {
			return err
		}
		a.log.Infof("wrote %d error records to %s", len(all), out.CSV)
	}
	if out.SQLite != "" {
		store, err := report.NewSQLiteStore(out.SQLite)
		if err != nil {
			return fmt.Errorf("open %s: %w", out.SQLite, err)
		}
		defer store.Close()
		runID, err := store.SaveErrors(cmd.Context(), all)
		if err != nil {
			return fmt.Errorf("save errors: %w", err)
		}
		a.log.Infof("stored %d error records in %s as run %s", len(all), out.SQLite, runID)
	}
	if out.PlotDir != "" {
		plotted := 0
		for _, rec := range all {
			h, ok := sess.Holdout(rec.ID)
			if !ok {
				continue
			}
			path, err := report.PlotHoldout(out.PlotDir, h, &rec)
			if err != nil {
				return fmt.Errorf("plot %s: %w", rec.ID, err)
			}
			a.log.Debugf("wrote %s", path)
			plotted++
		}
		a.log.Infof("wrote %d plots to %s", plotted, out.PlotDir)
	}
	return nil
}
