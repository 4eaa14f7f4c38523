package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2021, 3, day, hour, minute, 0, 0, time.UTC)
}

func TestResample_GridAndInterpolation(t *testing.T) {
	points := []Record{
		{ID: "a", Time: at(1, 3, 0), Lat: 10, Lon: -100, SST: 20, Chl: 0.1},
		{ID: "a", Time: at(1, 9, 0), Lat: 11, Lon: -101, SST: 22, Chl: 0.3},
		{ID: "a", Time: at(1, 18, 0), Lat: 14, Lon: -98, SST: 25, Chl: 0.6},
	}
	got := Resample("a", points, Step)

	want := Series{ID: "a", Points: []Record{
		// halfway between 03:00 and 09:00
		{ID: "a", Time: at(1, 6, 0), Lat: 10.5, Lon: -100.5, SST: 21, Chl: 0.2},
		// one third of the way from 09:00 to 18:00
		{ID: "a", Time: at(1, 12, 0), Lat: 12, Lon: -100, SST: 23, Chl: 0.4},
		// exact observation
		{ID: "a", Time: at(1, 18, 0), Lat: 14, Lon: -98, SST: 25, Chl: 0.6},
	}}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestResample_Spacing(t *testing.T) {
	points := []Record{
		{ID: "b", Time: at(1, 1, 30), Lat: 0},
		{ID: "b", Time: at(2, 0, 0), Lat: 1},
		{ID: "b", Time: at(4, 23, 59), Lat: 2},
	}
	s := Resample("b", points, Step)
	if s.Len() == 0 {
		t.Fatal("expected grid points")
	}
	if !s.Points[0].Time.Equal(at(1, 6, 0)) {
		t.Fatalf("first grid point = %s, want 06:00", s.Points[0].Time)
	}
	if last := s.Points[s.Len()-1].Time; !last.Equal(at(4, 18, 0)) {
		t.Fatalf("last grid point = %s, want day 4 18:00", last)
	}
	for i, p := range s.Points {
		if h := p.Time.Hour(); h%6 != 0 || p.Time.Minute() != 0 {
			t.Fatalf("point %d at %s is off the grid", i, p.Time)
		}
		if i > 0 {
			if d := p.Time.Sub(s.Points[i-1].Time); d != Step {
				t.Fatalf("point %d is %s after its predecessor", i, d)
			}
		}
		if p.Lat < 0 || p.Lat > 2 || math.IsNaN(p.Lat) {
			t.Fatalf("point %d lat %v escapes the observed range", i, p.Lat)
		}
	}
}

func TestResample_TooShort(t *testing.T) {
	one := []Record{{ID: "c", Time: at(1, 6, 0)}}
	if s := Resample("c", one, Step); s.Len() != 0 {
		t.Fatalf("single observation should give an empty series, got %d", s.Len())
	}
	// two observations with no grid instant between them
	gap := []Record{{ID: "c", Time: at(1, 1, 0)}, {ID: "c", Time: at(1, 5, 0)}}
	if s := Resample("c", gap, Step); s.Len() != 0 {
		t.Fatalf("expected empty series, got %d", s.Len())
	}
	same := []Record{{ID: "c", Time: at(1, 6, 0)}, {ID: "c", Time: at(1, 6, 0)}}
	if s := Resample("c", same, Step); s.Len() != 0 {
		t.Fatalf("expected empty series for a zero span, got %d", s.Len())
	}
}

func TestResampleAll_GroupsByID(t *testing.T) {
	records := []Record{
		{ID: "a", Time: at(1, 0, 0), Lat: 1},
		{ID: "a", Time: at(1, 12, 0), Lat: 3},
		{ID: "b", Time: at(1, 0, 0)}, // single point, omitted
		{ID: "c", Time: at(1, 6, 0), Lat: 5},
		{ID: "c", Time: at(1, 12, 0), Lat: 6},
	}
	series := ResampleAll(records, Step)
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].ID != "a" || series[0].Len() != 3 {
		t.Fatalf("unexpected first series %+v", series[0])
	}
	if series[0].Points[1].Lat != 2 {
		t.Fatalf("expected interpolated lat 2, got %v", series[0].Points[1].Lat)
	}
	if series[1].ID != "c" || series[1].Len() != 2 {
		t.Fatalf("unexpected second series %+v", series[1])
	}
}

func TestBuildExamples_ShiftsTargets(t *testing.T) {
	s := Series{ID: "a", Points: []Record{
		{ID: "a", Time: at(1, 0, 0), Lat: 1, Lon: 2, SST: 3, Chl: 4},
		{ID: "a", Time: at(1, 6, 0), Lat: 5, Lon: 6, SST: 7, Chl: 8},
		{ID: "a", Time: at(1, 12, 0), Lat: 9, Lon: 10, SST: 11, Chl: 12},
	}}
	other := Series{ID: "b", Points: []Record{
		{ID: "b", Time: at(1, 0, 0), Lat: 100},
		{ID: "b", Time: at(1, 6, 0), Lat: 200},
	}}
	examples := BuildExamples([]Series{s, other})
	if len(examples) != 3 {
		t.Fatalf("expected 3 examples (last point of each series excluded), got %d", len(examples))
	}

	want := Example{
		ID: "a", Time: at(1, 6, 0),
		Lat: 5, Lon: 6, SST: 7, Chl: 8,
		Hour: 6, Month: 3,
		LatNext: 9, LonNext: 10, SSTNext: 11, ChlNext: 12,
	}
	if diff := cmp.Diff(want, examples[1]); diff != "" {
		t.Fatalf("example mismatch (-want +got):\n%s", diff)
	}
	// targets never leak across individuals
	if examples[2].ID != "b" || examples[2].LatNext != 200 {
		t.Fatalf("unexpected example %+v", examples[2])
	}

	for i := 0; i+1 < 2; i++ {
		if examples[i].LatNext != examples[i+1].Lat {
			t.Fatalf("example %d next lat %v != following lat %v", i, examples[i].LatNext, examples[i+1].Lat)
		}
	}
}

func TestBuildExamples_DropsNonFinite(t *testing.T) {
	s := Series{ID: "a", Points: []Record{
		{ID: "a", Time: at(1, 0, 0), Lat: 1},
		{ID: "a", Time: at(1, 6, 0), Lat: math.NaN()},
		{ID: "a", Time: at(1, 12, 0), Lat: 3},
	}}
	if got := BuildExamples([]Series{s}); len(got) != 0 {
		t.Fatalf("expected no examples, got %d", len(got))
	}
}

func TestGroupByID(t *testing.T) {
	examples := []Example{{ID: "b", Lat: 1}, {ID: "a", Lat: 2}, {ID: "b", Lat: 3}}
	ids, groups := GroupByID(examples)
	if diff := cmp.Diff([]string{"b", "a"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(groups["b"]) != 2 || groups["b"][1].Lat != 3 {
		t.Fatalf("unexpected group b %+v", groups["b"])
	}
}
