package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-edge/internal/weather"
)

var (
	// ErrNotFound is returned when no health report matches.
	ErrNotFound = errors.New("no health report available")
)

// MemoryStore is a concurrency-safe in-memory history of health reports,
// ordered by the time they were saved.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []weather.HealthReport

	// retention configuration
	maxHistory int           // max number of reports kept
	maxAge     time.Duration // optional max age for reports

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveReport appends a report and enforces retention.
func (s *MemoryStore) SaveReport(report weather.HealthReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, report)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.reports) > s.maxHistory {
		over := len(s.reports) - s.maxHistory
		s.reports = append([]weather.HealthReport(nil), s.reports[over:]...)
	}

	// Enforce retention by age. The newest report is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.reports)-1; i++ {
			if !s.reports[i].CheckedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.reports = s.reports[i:]
		}
	}
}

// GetLatest returns the most recent report.
func (s *MemoryStore) GetLatest() (weather.HealthReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.reports) == 0 {
		return weather.HealthReport{}, ErrNotFound
	}
	return s.reports[len(s.reports)-1], nil
}

// GetRange returns all reports checked between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.HealthReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.HealthReport
	for _, r := range s.reports {
		if !r.CheckedAt.Before(from) && !r.CheckedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
