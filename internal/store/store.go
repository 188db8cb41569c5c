package store

import (
	"sync"
	"time"

	"github.com/edumeet/errwatch-backend/internal/domain"
)

// Defaults for the telemetry store. Both are configurable; these match the
// values the dashboard was tuned against.
const (
	DefaultMaxErrorsPerPage = 100
	DefaultDedupWindow      = 30 * time.Second
)

// Config tunes the telemetry store
type Config struct {
	// MaxErrorsPerPage bounds each page bucket; oldest entries are evicted
	MaxErrorsPerPage int
	// DedupWindow is the span during which identical (message, url) reports
	// on the same page collapse into one stored entry
	DedupWindow time.Duration
	// Clock overrides time.Now, used by tests to simulate the dedup window
	Clock func() time.Time
}

// TelemetryStore holds classified errors partitioned by page context.
// All state is transient in-process memory; a restart clears it.
//
// A single RWMutex guards the whole map. Ingest volume is monitoring-grade,
// not hot-path, so per-bucket locking is not worth the bookkeeping.
type TelemetryStore struct {
	mu          sync.RWMutex
	pages       map[string][]*domain.StoredError
	maxPerPage  int
	dedupWindow time.Duration
	now         func() time.Time
}

// New creates a TelemetryStore. Zero config fields fall back to defaults.
func New(cfg Config) *TelemetryStore {
	if cfg.MaxErrorsPerPage <= 0 {
		cfg.MaxErrorsPerPage = DefaultMaxErrorsPerPage
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &TelemetryStore{
		pages:       make(map[string][]*domain.StoredError),
		maxPerPage:  cfg.MaxErrorsPerPage,
		dedupWindow: cfg.DedupWindow,
		now:         cfg.Clock,
	}
}

// Insert adds e to the bucket of its page context, newest-first, unless an
// entry with the same (message, url) was received within the dedup window.
// Returns false when the report was discarded as a duplicate.
//
// The dedup check and the insert happen under one lock so two concurrent
// identical reports cannot both pass the check.
func (s *TelemetryStore) Insert(e *domain.StoredError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	page := e.PageContext
	bucket := s.pages[page]

	for _, existing := range bucket {
		if existing.Message == e.Message && existing.URL == e.URL &&
			now.Sub(existing.ReceivedAt) < s.dedupWindow {
			return false
		}
	}

	e.ReceivedAt = now
	bucket = append([]*domain.StoredError{e}, bucket...)
	if len(bucket) > s.maxPerPage {
		bucket = bucket[:s.maxPerPage]
	}
	s.pages[page] = bucket
	return true
}

// Page returns a snapshot of one page's bucket, newest-first. The returned
// values are copies; callers may not observe later resolution updates.
func (s *TelemetryStore) Page(pageContext string) []domain.StoredError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.pages[pageContext])
}

// All returns a snapshot of every bucket flattened into one slice.
func (s *TelemetryStore) All() []domain.StoredError {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StoredError
	for _, bucket := range s.pages {
		out = append(out, snapshot(bucket)...)
	}
	return out
}

// Resolve locates an error by id across all buckets and flips its resolved
// state. Ids are unique so the first match is authoritative. ResolvedAt is
// stamped when resolving and cleared when re-opening. An unknown id is a
// silent no-op; returns whether a match was found.
func (s *TelemetryStore) Resolve(errorID string, resolved bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bucket := range s.pages {
		for _, e := range bucket {
			if e.ID != errorID {
				continue
			}
			e.Resolved = resolved
			if resolved {
				t := s.now()
				e.ResolvedAt = &t
			} else {
				e.ResolvedAt = nil
			}
			return true
		}
	}
	return false
}

// PageLen returns the current size of one page's bucket
func (s *TelemetryStore) PageLen(pageContext string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages[pageContext])
}

// Now reports the store's clock, so analytics over a snapshot use the same
// time base as insertion.
func (s *TelemetryStore) Now() time.Time {
	return s.now()
}

func snapshot(bucket []*domain.StoredError) []domain.StoredError {
	if len(bucket) == 0 {
		return nil
	}
	out := make([]domain.StoredError, len(bucket))
	for i, e := range bucket {
		out[i] = *e
	}
	return out
}
