package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/sharkcast/report"
	"github.com/Noofbiz/sharkcast/tracker"
)

// bestCount is the number of lowest-error ids listed before prompting.
const bestCount = 10

type predictOptions struct {
	id    string
	lat   float64
	lon   float64
	hour  int
	month int
}

func newPredictCmd(a *app) *cobra.Command {
	var o predictOptions
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast one shark's position and environment six hours ahead",
		Long: "Trains a model pair for every shark in the tracking CSV, lists the sharks with the\n" +
			"lowest held-out position error, then forecasts for the requested shark. Values not\n" +
			"given as flags are read from standard input.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPredict(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.id, "id", "", "shark id")
	f.Float64Var(&o.lat, "lat", 0, "current latitude")
	f.Float64Var(&o.lon, "lon", 0, "current longitude")
	f.IntVar(&o.hour, "hour", 0, "current hour (0-23)")
	f.IntVar(&o.month, "month", 0, "current month (1-12)")
	return cmd
}

func (a *app) runPredict(cmd *cobra.Command, o predictOptions) error {
	sess, stop, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Forecasts a shark's next position, sea surface temperature and chlorophyll 6 hours ahead.")
	if err := report.WriteBest(out, sess.Registry().Best(bestCount)); err != nil {
		return err
	}

	p := &prompter{in: bufio.NewScanner(cmd.InOrStdin()), out: out}
	flags := cmd.Flags()

	id := o.id
	if !flags.Changed("id") {
		if id, err = p.text("Shark ID: "); err != nil {
			return err
		}
	}
	pred := sess.Predictor()
	if !pred.Has(id) {
		return report.WriteNoModel(out, strings.TrimSpace(id))
	}

	q := tracker.Query{ID: id, Lat: o.lat, Lon: o.lon, Hour: o.hour, Month: o.month}
	if !flags.Changed("lat") {
		if q.Lat, err = p.number("Current latitude: "); err != nil {
			return err
		}
	}
	if !flags.Changed("lon") {
		if q.Lon, err = p.number("Current longitude: "); err != nil {
			return err
		}
	}
	if !flags.Changed("hour") {
		if q.Hour, err = p.integer("Current hour (0-23): "); err != nil {
			return err
		}
	}
	if !flags.Changed("month") {
		if q.Month, err = p.integer("Current month (1-12): "); err != nil {
			return err
		}
	}

	fc, err := pred.Predict(q)
	if errors.Is(err, tracker.ErrNoModel) {
		return report.WriteNoModel(out, strings.TrimSpace(id))
	}
	if err != nil {
		return err
	}
	return report.WriteForecast(out, fc)
}

// prompter reads one answer per line.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) text(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input for %q", strings.TrimSpace(label))
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *prompter) number(label string) (float64, error) {
	s, err := p.text(label)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

func (p *prompter) integer(label string) (int, error) {
	s, err := p.text(label)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return v, nil
}
