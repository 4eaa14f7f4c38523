package telemetry

import "math"

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BuildExamples derives hour/month and the next-step targets for every series.
// The last point of a series has no successor and produces no example; rows
// where the current or next values are not finite are dropped as well.
func BuildExamples(series []Series) []Example {
	var out []Example
	for _, s := range series {
		for i := 0; i+1 < len(s.Points); i++ {
			cur, next := s.Points[i], s.Points[i+1]
			if !finite(cur.Lat, cur.Lon, cur.SST, cur.Chl, next.Lat, next.Lon, next.SST, next.Chl) {
				continue
			}
			ts := cur.Time.UTC()
			out = append(out, Example{
				ID:      s.ID,
				Time:    cur.Time,
				Lat:     cur.Lat,
				Lon:     cur.Lon,
				SST:     cur.SST,
				Chl:     cur.Chl,
				Hour:    ts.Hour(),
				Month:   int(ts.Month()),
				LatNext: next.Lat,
				LonNext: next.Lon,
				SSTNext: next.SST,
				ChlNext: next.Chl,
			})
		}
	}
	return out
}
