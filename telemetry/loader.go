package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Noofbiz/sharkcast/logger"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("required column not found")

// Columns names the CSV header used for each field. An empty field falls back
// to the aliases in DefaultAliases.
type Columns struct {
	ID   string `json:"id"`
	Lat  string `json:"lat"`
	Lon  string `json:"lon"`
	SST  string `json:"sst"`
	Chl  string `json:"chl"`
	Time string `json:"time"`
}

// DefaultAliases lists the header names tried, in order, for each field.
var DefaultAliases = map[string][]string{
	"id":   {"id", "shark_id", "individual_id"},
	"lat":  {"lat", "latitude"},
	"lon":  {"lon", "lng", "longitude"},
	"sst":  {"sst_asignado", "sst", "sea_surface_temp"},
	"chl":  {"clorofila_asignada", "chlorophyll", "chl"},
	"time": {"datetime", "timestamp", "time"},
}

// LoadStats counts what happened to the input rows.
type LoadStats struct {
	Rows      int
	Kept      int
	BadTime   int
	BadNumber int
	Short     int
}

// Dropped is the number of rows excluded from the cleaned table.
func (s LoadStats) Dropped() int { return s.Rows - s.Kept }

type columnIndex struct {
	id, lat, lon, sst, chl, time int
}

// resolveColumns maps the logical fields to header positions.
func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		normalized := strings.TrimSpace(strings.ToLower(strings.TrimPrefix(col, "\ufeff")))
		if _, dup := colIndex[normalized]; !dup {
			colIndex[normalized] = i
		}
	}

	find := func(field, override string) (int, error) {
		if override != "" {
			if idx, ok := colIndex[strings.ToLower(strings.TrimSpace(override))]; ok {
				return idx, nil
			}
			return -1, fmt.Errorf("%w: %q", ErrMissingColumn, override)
		}
		for _, name := range DefaultAliases[field] {
			if idx, ok := colIndex[name]; ok {
				return idx, nil
			}
		}
		return -1, fmt.Errorf("%w: %s (tried %v)", ErrMissingColumn, field, DefaultAliases[field])
	}

	var ci columnIndex
	var err error
	if ci.id, err = find("id", cols.ID); err != nil {
		return ci, err
	}
	if ci.lat, err = find("lat", cols.Lat); err != nil {
		return ci, err
	}
	if ci.lon, err = find("lon", cols.Lon); err != nil {
		return ci, err
	}
	if ci.sst, err = find("sst", cols.SST); err != nil {
		return ci, err
	}
	if ci.chl, err = find("chl", cols.Chl); err != nil {
		return ci, err
	}
	if ci.time, err = find("time", cols.Time); err != nil {
		return ci, err
	}
	return ci, nil
}

func (ci columnIndex) max() int {
	m := ci.id
	for _, v := range []int{ci.lat, ci.lon, ci.sst, ci.chl, ci.time} {
		if v > m {
			m = v
		}
	}
	return m
}

// Load reads telemetry rows from r. Rows whose timestamp, coordinates, SST or
// chlorophyll cannot be parsed are dropped and counted; they never fail the
// load. The result is sorted by individual id, then time.
func Load(r io.Reader, cols Columns, log logger.Logger) ([]Record, LoadStats, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	var stats LoadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}
	ci, err := resolveColumns(header, cols)
	if err != nil {
		return nil, stats, err
	}
	width := ci.max() + 1

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if len(row) < width {
			stats.Short++
			continue
		}
		ts, err := parseTime(row[ci.time])
		if err != nil {
			stats.BadTime++
			log.Debugf("[Loader] dropping row %d: %v", stats.Rows, err)
			continue
		}
		rec := Record{ID: NormalizeID(row[ci.id]), Time: ts}
		if rec.ID == "" {
			stats.Short++
			continue
		}
		ok := true
		for _, f := range []struct {
			dst *float64
			src string
		}{
			{&rec.Lat, row[ci.lat]},
			{&rec.Lon, row[ci.lon]},
			{&rec.SST, row[ci.sst]},
			{&rec.Chl, row[ci.chl]},
		} {
			v, err := parseFloat64(f.src)
			if err != nil {
				ok = false
				break
			}
			*f.dst = v
		}
		if !ok {
			stats.BadNumber++
			log.Debugf("[Loader] dropping row %d: unparsable numeric field", stats.Rows)
			continue
		}
		records = append(records, rec)
	}
	stats.Kept = len(records)

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ID != records[j].ID {
			return records[i].ID < records[j].ID
		}
		return records[i].Time.Before(records[j].Time)
	})

	log.Infof("[Loader] loaded %d rows, kept %d (bad time=%d, bad number=%d, short=%d)",
		stats.Rows, stats.Kept, stats.BadTime, stats.BadNumber, stats.Short)
	return records, stats, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, cols Columns, log logger.Logger) ([]Record, LoadStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return Load(file, cols, log)
}
