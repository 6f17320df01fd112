// Package store keeps the sliding in-memory window of MUF points.
package store

import (
	"sync"
	"time"

	"github.com/koalabang/MUFCR6K2025/internal/muf"
)

const (
	// DefaultRetention bounds memory for a process that runs forever
	// and never persists.
	DefaultRetention = 60 * time.Minute

	// DefaultStaleAfter is how old a point may be before readers see it
	// flagged stale.
	DefaultStaleAfter = 600 * time.Second
)

// SeriesStore is a concurrency-safe bounded buffer of MUF points.
// There is one writer (the refresh cycle) and any number of readers;
// the buffer stays chronological because the writer appends in order,
// which lets eviction be a prefix trim.
type SeriesStore struct {
	mu sync.RWMutex

	points     []muf.Point
	retention  time.Duration
	staleAfter time.Duration

	now func() time.Time // injected in tests
}

// NewSeriesStore creates a store with the given retention horizon and
// staleness threshold. Non-positive values fall back to the defaults.
func NewSeriesStore(retention, staleAfter time.Duration) *SeriesStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &SeriesStore{
		retention:  retention,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Append records a new point and evicts everything that has fallen out
// of the retention window. The average is defined only when both station
// values are present. Timestamps are trusted to arrive in order.
func (s *SeriesStore) Append(roquetes, arenosillo *float64, ts time.Time) muf.Point {
	var avg *float64
	if roquetes != nil && arenosillo != nil {
		v := (*roquetes + *arenosillo) / 2
		avg = &v
	}

	now := s.now().UTC()
	status := muf.StatusFresh
	if now.Sub(ts) > s.staleAfter {
		status = muf.StatusStale
	}

	point := muf.Point{
		Roquetes:   roquetes,
		Arenosillo: arenosillo,
		Avg:        avg,
		Timestamp:  ts.UTC(),
		Status:     status,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = append(s.points, point)
	s.evictLocked(now)
	return point
}

// evictLocked trims expired points off the front. Callers hold the lock.
func (s *SeriesStore) evictLocked(now time.Time) {
	cutoff := now.Add(-s.retention)
	i := 0
	for i < len(s.points) && s.points[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.points = s.points[i:]
	}
}

// Latest returns a copy of the most recent point, re-checking its
// freshness against the current instant first. A point only ever moves
// from fresh to stale; new data arriving is the only way back.
func (s *SeriesStore) Latest() (muf.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.points) == 0 {
		return muf.Point{}, false
	}

	last := &s.points[len(s.points)-1]
	if s.now().UTC().Sub(last.Timestamp) > s.staleAfter {
		last.Status = muf.StatusStale
	}
	return *last, true
}

// Range returns a snapshot of all points no older than the window.
// A window wider than the retention horizon just returns everything
// still retained; older data is gone for good.
func (s *SeriesStore) Range(window time.Duration) []muf.Point {
	cutoff := s.now().UTC().Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := 0
	for i < len(s.points) && s.points[i].Timestamp.Before(cutoff) {
		i++
	}

	out := make([]muf.Point, len(s.points)-i)
	copy(out, s.points[i:])
	return out
}

// Size reports the number of points currently retained.
func (s *SeriesStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Clear empties the buffer. Diagnostic and test use only.
func (s *SeriesStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = nil
}
