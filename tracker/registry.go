package tracker

import (
	"sort"
	"sync"
)

// ErrorRecord holds the held-out accuracy of one individual's model pair.
type ErrorRecord struct {
	ID string `json:"id"`
	// PositionKm is the mean degree-space distance between predicted and
	// true next position, times KmPerDegree.
	PositionKm float64 `json:"position_error_km"`
	// TempC is the mean absolute SST error in °C.
	TempC float64 `json:"temp_error_c"`
	// Chl is the mean absolute chlorophyll error in mg/m³.
	Chl float64 `json:"chl_error"`

	TrainSize int `json:"train_size"`
	TestSize  int `json:"test_size"`
}

// Registry stores ErrorRecords by individual id. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records map[string]ErrorRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]ErrorRecord)}
}

// Put stores rec, replacing any record with the same id.
func (r *Registry) Put(rec ErrorRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
}

// Get returns the record for id.
func (r *Registry) Get(id string) (ErrorRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// All returns every record sorted by id.
func (r *Registry) All() []ErrorRecord {
	r.mu.RLock()
	out := make([]ErrorRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Best returns up to n records with the lowest position error, ties broken
// by id. n <= 0 returns all of them.
func (r *Registry) Best(n int) []ErrorRecord {
	out := r.All()
	sort.SliceStable(out, func(i, j int) bool { return out[i].PositionKm < out[j].PositionKm })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
