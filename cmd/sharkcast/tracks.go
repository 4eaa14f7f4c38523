package main

import (
	"github.com/spf13/cobra"

	"github.com/Noofbiz/sharkcast/report"
	"github.com/Noofbiz/sharkcast/telemetry"
)

func newTracksCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "Export the 6-hour resampled tracks as JSON for the map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("out") {
				outPath = a.cfg.Output.Tracks
			}
			records, err := a.loadRecords()
			if err != nil {
				return err
			}
			series := telemetry.ResampleAll(records, telemetry.Step)
			if outPath == "" || outPath == "-" {
				return report.WriteTracksJSON(cmd.OutOrStdout(), series)
			}
			if err := report.SaveTracksJSON(outPath, series); err != nil {
				return err
			}
			a.log.Infof("wrote %d tracks to %s", len(series), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, - for stdout (overrides output.tracks)")
	return cmd
}
