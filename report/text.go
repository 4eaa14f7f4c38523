// Package report renders forecasts and held-out errors as console text, CSV,
// SQLite rows, track JSON and PNG plots.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Noofbiz/sharkcast/tracker"
)

// NoErrorInfo is printed when a forecast has no held-out error record.
const NoErrorInfo = "No error information found for this shark."

// WriteNoModel prints the message for an id without a trained model.
func WriteNoModel(w io.Writer, id string) error {
	_, err := fmt.Fprintf(w, "No trained model exists for ID '%s'.\n", id)
	return err
}

// WriteForecast prints the forecast report followed by the error block, or
// NoErrorInfo when the individual has no error record.
func WriteForecast(w io.Writer, fc *tracker.Forecast) error {
	var b strings.Builder
	b.WriteString("\nFORECAST RESULT:\n")
	fmt.Fprintf(&b, "Shark: %s\n", fc.ID)
	fmt.Fprintf(&b, "Next latitude: %.4f\n", fc.LatNext)
	fmt.Fprintf(&b, "Next longitude: %.4f\n", fc.LonNext)
	fmt.Fprintf(&b, "Expected temperature (SST): %.2f °C\n", fc.SSTNext)
	fmt.Fprintf(&b, "Expected chlorophyll (CHL): %.3f mg/m³\n", fc.ChlNext)
	b.WriteString("Forecast is 6 hours ahead.\n")

	if fc.Errors == nil {
		b.WriteString("\n" + NoErrorInfo + "\n")
	} else {
		e := fc.Errors
		b.WriteString("\nModel error for this shark:\n")
		fmt.Fprintf(&b, "Position error: %.2f km\n", e.PositionKm)
		fmt.Fprintf(&b, "Temperature error: %.2f °C\n", e.TempC)
		fmt.Fprintf(&b, "Chlorophyll error: %.3f mg/m³\n", e.Chl)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteBest prints the ids of the given records on one line.
func WriteBest(w io.Writer, recs []tracker.ErrorRecord) error {
	if len(recs) == 0 {
		_, err := io.WriteString(w, "No individual has enough data for a model.\n")
		return err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	_, err := fmt.Fprintf(w, "IDs of the sharks with the lowest error: %s\n", strings.Join(ids, "  "))
	return err
}

// WriteSummary prints one line per record with its errors, in the given order.
func WriteSummary(w io.Writer, recs []tracker.ErrorRecord) error {
	if _, err := fmt.Fprintf(w, "%-12s %6s %5s %12s %10s %10s\n", "id", "train", "test", "position_km", "temp_c", "chl"); err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := fmt.Fprintf(w, "%-12s %6d %5d %12.2f %10.2f %10.3f\n",
			r.ID, r.TrainSize, r.TestSize, r.PositionKm, r.TempC, r.Chl); err != nil {
			return err
		}
	}
	return nil
}
