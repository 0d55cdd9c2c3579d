package syncrun

import (
	"sync"
)

// StatsSnapshot is an immutable view of run counters. The invariant
// processed == created+updated+failed+skipped holds at every observation
// point, not only at completion.
type StatsSnapshot struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Consistent reports whether the snapshot satisfies the counter invariant.
func (s StatsSnapshot) Consistent() bool {
	return s.Processed == s.Created+s.Updated+s.Failed+s.Skipped
}

// Percent returns run completion as a value in [0, 100]. Before the source is
// loaded the total is unknown and progress reads as zero.
func (s StatsSnapshot) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// Stats accumulates run counters. All mutation goes through the Record
// methods, which update processed and the outcome counter under one mutex so
// the invariant is externally observable mid-run.
type Stats struct {
	mu   sync.Mutex
	snap StatsSnapshot
}

// NewStats creates a Stats tracker for total entities.
func NewStats(total int) *Stats {
	return &Stats{snap: StatsSnapshot{Total: total}}
}

// SetTotal sets the expected entity count once the source is loaded.
func (s *Stats) SetTotal(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Total = total
}

// RecordCreated counts one created entity.
func (s *Stats) RecordCreated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Processed++
	s.snap.Created++
}

// RecordUpdated counts one updated entity.
func (s *Stats) RecordUpdated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Processed++
	s.snap.Updated++
}

// RecordFailed counts one failed entity.
func (s *Stats) RecordFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Processed++
	s.snap.Failed++
}

// RecordSkipped counts one skipped entity.
func (s *Stats) RecordSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Processed++
	s.snap.Skipped++
}

// Record counts one entity under the given outcome status.
func (s *Stats) Record(status OutcomeStatus) {
	switch status {
	case OutcomeCreated:
		s.RecordCreated()
	case OutcomeUpdated:
		s.RecordUpdated()
	case OutcomeFailed:
		s.RecordFailed()
	default:
		s.RecordSkipped()
	}
}

// Snapshot returns a consistent copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
