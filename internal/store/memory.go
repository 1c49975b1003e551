package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/solar-report/internal/pipeline"
)

var (
	// ErrNotFound is returned when no run has been recorded for a site.
	ErrNotFound = errors.New("no runs recorded for site")
)

// RunHistory holds the time-ordered results recorded for one site.
type RunHistory struct {
	Runs []pipeline.SiteResult
}

// MemoryStore is a concurrency-safe in-memory history of site runs.
type MemoryStore struct {
	mu sync.RWMutex

	// key: site id
	data map[int]*RunHistory

	maxHistory int           // max number of runs per site
	maxAge     time.Duration // optional max age of runs
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[int]*RunHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveRun appends a result for its site and enforces retention.
func (s *MemoryStore) SaveRun(r pipeline.SiteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[r.SiteID]
	if !ok {
		history = &RunHistory{}
		s.data[r.SiteID] = history
	}
	history.Runs = append(history.Runs, r)

	if s.maxHistory > 0 && len(history.Runs) > s.maxHistory {
		over := len(history.Runs) - s.maxHistory
		history.Runs = history.Runs[over:]
	}

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Runs); i++ {
			if !history.Runs[i].Started.Before(cutoff) {
				break
			}
		}
		// the newest run is always kept
		if i >= len(history.Runs) {
			i = len(history.Runs) - 1
		}
		history.Runs = history.Runs[i:]
	}
}

// Latest returns the most recent result for a site.
func (s *MemoryStore) Latest(siteID int) (pipeline.SiteResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[siteID]
	if !ok || len(history.Runs) == 0 {
		return pipeline.SiteResult{}, ErrNotFound
	}
	return history.Runs[len(history.Runs)-1], nil
}

// Range returns the results for a site started between from and to (inclusive).
func (s *MemoryStore) Range(siteID int, from, to time.Time) ([]pipeline.SiteResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[siteID]
	if !ok || len(history.Runs) == 0 {
		return nil, ErrNotFound
	}

	var result []pipeline.SiteResult
	for _, r := range history.Runs {
		if !r.Started.Before(from) && !r.Started.After(to) {
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
