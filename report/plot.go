package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/sharkcast/tracker"
)

// PlotHoldout draws the held-out track of one individual: the observed next
// positions (grey) against the predicted ones (blue), with a faint segment
// joining each pair. It returns the path of the PNG written under outDir.
func PlotHoldout(outDir string, h tracker.Holdout, rec *tracker.ErrorRecord) (string, error) {
	if len(h.Points) == 0 {
		return "", fmt.Errorf("holdout for %q has no points", h.ID)
	}
	truth := make(plotter.XYs, len(h.Points))
	pred := make(plotter.XYs, len(h.Points))
	for i, p := range h.Points {
		truth[i] = plotter.XY{X: p.Lon, Y: p.Lat}
		pred[i] = plotter.XY{X: p.PredLon, Y: p.PredLat}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Shark %s: held-out track, observed (grey) vs predicted (blue)", h.ID)
	if rec != nil {
		p.Title.Text += fmt.Sprintf("\nmean position error %.2f km over %d steps", rec.PositionKm, rec.TestSize)
	}
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	// observed track as a line plus points
	tl, tp, err := plotter.NewLinePoints(truth)
	if err != nil {
		return "", err
	}
	tl.Color = color.RGBA{R: 120, G: 120, B: 120, A: 200}
	tl.Width = vg.Points(1)
	tp.GlyphStyle.Color = color.RGBA{R: 120, G: 120, B: 120, A: 220}
	tp.GlyphStyle.Radius = vg.Points(2)
	p.Add(tl, tp)
	p.Legend.Add("observed", tl, tp)

	pl, pp, err := plotter.NewLinePoints(pred)
	if err != nil {
		return "", err
	}
	pl.Color = color.RGBA{R: 20, G: 80, B: 200, A: 200}
	pl.Width = vg.Points(1)
	pp.GlyphStyle.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	pp.GlyphStyle.Radius = vg.Points(2.4)
	p.Add(pl, pp)
	p.Legend.Add("predicted", pl, pp)

	for i := range truth {
		seg, err := plotter.NewLine(plotter.XYs{truth[i], pred[i]})
		if err != nil {
			return "", err
		}
		seg.Color = color.RGBA{R: 200, G: 30, B: 30, A: 90}
		seg.Width = vg.Points(0.6)
		p.Add(seg)
	}

	p.Add(plotter.NewGrid())
	all := append(append(plotter.XYs{}, truth...), pred...)
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = autoRange(all)

	if err := ensureDir(outDir); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, "holdout_"+safeName(h.ID)+".png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// autoRange returns the bounding box of xs padded by 6% on each side.
func autoRange(xs plotter.XYs) (xmin, xmax, ymin, ymax float64) {
	if len(xs) == 0 {
		return -1, 1, -1, 1
	}
	xmin, xmax = math.Inf(1), math.Inf(-1)
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, p := range xs {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	padx := (xmax - xmin) * 0.06
	pady := (ymax - ymin) * 0.06
	// a single point or a straight meridian/parallel still gets a visible box
	if padx == 0 {
		padx = 0.01
	}
	if pady == 0 {
		pady = 0.01
	}
	return xmin - padx, xmax + padx, ymin - pady, ymax + pady
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
}
