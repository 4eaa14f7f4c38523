package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Noofbiz/sharkcast/tracker"
)

// ErrorHeader is the header row of the error CSV.
var ErrorHeader = []string{"id", "train_size", "test_size", "error_pos_km", "error_temp_c", "error_chl_mg"}

// WriteErrorsCSV writes one row per record.
func WriteErrorsCSV(w io.Writer, recs []tracker.ErrorRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ErrorHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.ID,
			strconv.Itoa(r.TrainSize),
			strconv.Itoa(r.TestSize),
			strconv.FormatFloat(r.PositionKm, 'f', 6, 64),
			strconv.FormatFloat(r.TempC, 'f', 6, 64),
			strconv.FormatFloat(r.Chl, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveErrorsCSV writes recs to path atomically: the rows go to a temp file in
// the same directory, which is renamed over path once complete.
func SaveErrorsCSV(path string, recs []tracker.ErrorRecord) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteErrorsCSV(w, recs) })
}

func writeAtomic(path string, write func(io.Writer) error) error {
	if path == "" {
		return fmt.Errorf("empty output path")
	}
	dir := filepath.Dir(path)
	if err := ensureDir(dir); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
