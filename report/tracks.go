package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/Noofbiz/sharkcast/telemetry"
)

// TrackLayout is the datetime format of exported track points.
const TrackLayout = "2006-01-02 15:04:05"

// TrackID marshals as a JSON number when the id is a canonical integer
// ("159826", "-3") and as a string otherwise ("007", "+5", "A12").
type TrackID string

func (id TrackID) MarshalJSON() ([]byte, error) {
	if v, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(v, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// TrackPoint is one resampled fix as consumed by the map front end.
type TrackPoint struct {
	ID       TrackID `json:"ID"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Datetime string  `json:"datetime"`
}

// TrackPoints flattens series into track points, in series order.
func TrackPoints(series []telemetry.Series) []TrackPoint {
	var out []TrackPoint
	for _, s := range series {
		for _, p := range s.Points {
			out = append(out, TrackPoint{
				ID:       TrackID(s.ID),
				Lat:      p.Lat,
				Lon:      p.Lon,
				Datetime: p.Time.UTC().Format(TrackLayout),
			})
		}
	}
	return out
}

// WriteTracksJSON writes series as a JSON array of TrackPoint.
func WriteTracksJSON(w io.Writer, series []telemetry.Series) error {
	points := TrackPoints(series)
	if points == nil {
		points = []TrackPoint{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(points)
}

// SaveTracksJSON writes the track JSON to path atomically.
func SaveTracksJSON(path string, series []telemetry.Series) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteTracksJSON(w, series) })
}
