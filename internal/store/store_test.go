package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumeet/errwatch-backend/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newEntry(page, message, url string) *domain.StoredError {
	e := &domain.StoredError{
		ID: fmt.Sprintf("%s-%s", page, message),
	}
	e.Message = message
	e.URL = url
	e.PageContext = page
	return e
}

func TestInsert_BoundedNewestFirst(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{MaxErrorsPerPage: 100, Clock: clock.Now})

	for i := 0; i < 150; i++ {
		clock.Advance(time.Second)
		inserted := s.Insert(newEntry("/dashboard", fmt.Sprintf("error %d", i), "/dashboard"))
		assert.True(t, inserted)
	}

	bucket := s.Page("/dashboard")
	require.Len(t, bucket, 100)
	// Newest first
	assert.Equal(t, "error 149", bucket[0].Message)
	assert.Equal(t, "error 50", bucket[99].Message)
}

func TestInsert_EvictsOldestBeyondCap(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{MaxErrorsPerPage: 100, Clock: clock.Now})

	for i := 0; i < 101; i++ {
		clock.Advance(time.Second)
		s.Insert(newEntry("/meetings", fmt.Sprintf("error %d", i), "/meetings"))
	}

	bucket := s.Page("/meetings")
	require.Len(t, bucket, 100)
	for _, e := range bucket {
		assert.NotEqual(t, "error 0", e.Message, "first inserted error should be evicted")
	}
}

func TestInsert_DedupWithinWindow(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{DedupWindow: 30 * time.Second, Clock: clock.Now})

	assert.True(t, s.Insert(newEntry("/dashboard", "TypeError: x is undefined", "/dashboard")))

	// Identical (message, url) right away: discarded
	assert.False(t, s.Insert(newEntry("/dashboard", "TypeError: x is undefined", "/dashboard")))
	assert.Equal(t, 1, s.PageLen("/dashboard"))

	// Still inside the window
	clock.Advance(29 * time.Second)
	assert.False(t, s.Insert(newEntry("/dashboard", "TypeError: x is undefined", "/dashboard")))

	// Past the window: stored as a distinct entry
	clock.Advance(2 * time.Second)
	assert.True(t, s.Insert(newEntry("/dashboard", "TypeError: x is undefined", "/dashboard")))
	assert.Equal(t, 2, s.PageLen("/dashboard"))
}

func TestInsert_DedupIsPerPage(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{Clock: clock.Now})

	assert.True(t, s.Insert(newEntry("/dashboard", "same error", "/x")))
	assert.True(t, s.Insert(newEntry("/meetings", "same error", "/x")))
}

func TestInsert_DifferentURLNotDeduplicated(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{Clock: clock.Now})

	assert.True(t, s.Insert(newEntry("/dashboard", "same error", "/a")))
	assert.True(t, s.Insert(newEntry("/dashboard", "same error", "/b")))
}

func TestResolve_SetsAndClearsResolvedAt(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{Clock: clock.Now})

	e := newEntry("/dashboard", "boom", "/dashboard")
	require.True(t, s.Insert(e))

	require.True(t, s.Resolve(e.ID, true))
	got := s.Page("/dashboard")[0]
	assert.True(t, got.Resolved)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, clock.Now(), *got.ResolvedAt)

	// Re-opening clears the resolution timestamp
	require.True(t, s.Resolve(e.ID, false))
	got = s.Page("/dashboard")[0]
	assert.False(t, got.Resolved)
	assert.Nil(t, got.ResolvedAt)
}

func TestResolve_Idempotent(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{Clock: clock.Now})

	e := newEntry("/dashboard", "boom", "/dashboard")
	require.True(t, s.Insert(e))

	require.True(t, s.Resolve(e.ID, true))
	clock.Advance(time.Minute)
	require.True(t, s.Resolve(e.ID, true))

	got := s.Page("/dashboard")[0]
	assert.True(t, got.Resolved)
	// Repeated resolve re-stamps resolvedAt with the latest call
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, clock.Now(), *got.ResolvedAt)
}

func TestResolve_UnknownIDIsNoOp(t *testing.T) {
	s := New(Config{})
	s.Insert(newEntry("/dashboard", "boom", "/dashboard"))

	assert.False(t, s.Resolve("does-not-exist", true))
	assert.False(t, s.Page("/dashboard")[0].Resolved)
}

func TestAll_FlattensBuckets(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{Clock: clock.Now})

	s.Insert(newEntry("/a", "one", "/a"))
	s.Insert(newEntry("/b", "two", "/b"))
	s.Insert(newEntry("/c", "three", "/c"))

	assert.Len(t, s.All(), 3)
}

func TestInsert_ConcurrentDistinctMessages(t *testing.T) {
	s := New(Config{MaxErrorsPerPage: 100})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Insert(newEntry("/dashboard", fmt.Sprintf("error %d", i), "/dashboard"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.PageLen("/dashboard"))
}
