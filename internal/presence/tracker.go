// Package presence tracks which users are currently active on the site.
//
// Presence counts unique recently-active authenticated users: page loads and
// heartbeats both refresh the entry keyed by the username, so a user is never
// counted twice no matter how many tabs or page views they produce. Entries
// older than the configured timeout are removed by the presence janitor.
package presence

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Tracker maps an active-user key to the time it was last seen.
type Tracker struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Touch records activity for the given key, creating or refreshing its entry.
func (t *Tracker) Touch(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[key] = t.now()
}

// Count returns the number of currently tracked keys.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lastSeen)
}

// Sweep removes entries that have not been touched within timeout and returns
// the number of entries removed. The filtered map is built first and swapped
// in under the lock.
func (t *Tracker) Sweep(timeout time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	kept := lo.PickBy(t.lastSeen, func(_ string, seen time.Time) bool {
		return now.Sub(seen) < timeout
	})
	removed := len(t.lastSeen) - len(kept)
	t.lastSeen = kept
	return removed
}

// Reset drops all tracked entries. Used by the admin statistics reset.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = make(map[string]time.Time)
}
