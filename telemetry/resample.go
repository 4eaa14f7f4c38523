package telemetry

import (
	"time"
)

// gridStart returns the first grid instant at or after t. Grid instants are
// multiples of step counted from midnight UTC (00/06/12/18 for a 6h step).
func gridStart(t time.Time, step time.Duration) time.Time {
	floor := t.Truncate(step)
	if floor.Equal(t) {
		return floor
	}
	return floor.Add(step)
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// Resample interpolates one individual's observations onto the Step grid.
// points must belong to a single individual and be sorted by time. Grid
// points are the multiples of step inside [first, last]; each
// takes the linear interpolation of the two observations bracketing it.
// The grid is aligned as in gridStart.
// Fewer than two observations, or a span that contains no grid point, yields
// an empty series.
func Resample(id string, points []Record, step time.Duration) Series {
	out := Series{ID: id}
	if len(points) < 2 || step <= 0 {
		return out
	}
	first := points[0].Time
	last := points[len(points)-1].Time
	if !last.After(first) {
		return out
	}

	j := 0 // points[j] is the last observation at or before t
	for t := gridStart(first, step); !t.After(last); t = t.Add(step) {
		for j+1 < len(points) && !points[j+1].Time.After(t) {
			j++
		}
		lo := points[j]
		if lo.Time.Equal(t) || j+1 == len(points) {
			out.Points = append(out.Points, Record{ID: id, Time: t, Lat: lo.Lat, Lon: lo.Lon, SST: lo.SST, Chl: lo.Chl})
			continue
		}
		hi := points[j+1]
		span := hi.Time.Sub(lo.Time)
		frac := float64(t.Sub(lo.Time)) / float64(span)
		out.Points = append(out.Points, Record{
			ID:   id,
			Time: t,
			Lat:  lerp(lo.Lat, hi.Lat, frac),
			Lon:  lerp(lo.Lon, hi.Lon, frac),
			SST:  lerp(lo.SST, hi.SST, frac),
			Chl:  lerp(lo.Chl, hi.Chl, frac),
		})
	}
	return out
}

// ResampleAll resamples every individual in records, which must be sorted by
// id then time (as returned by Load). Individuals that produce no grid point
// are omitted; the rest keep their input order.
func ResampleAll(records []Record, step time.Duration) []Series {
	var out []Series
	for start := 0; start < len(records); {
		end := start + 1
		for end < len(records) && records[end].ID == records[start].ID {
			end++
		}
		if s := Resample(records[start].ID, records[start:end], step); s.Len() > 0 {
			out = append(out, s)
		}
		start = end
	}
	return out
}
