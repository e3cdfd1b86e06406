package relayer

import (
	"fmt"
	"sync"
	"time"

	"github.com/graphprotocol/metatx-relay/relay"
)

// Tracker keeps the submissions accepted by the relayer so their lifecycle
// can be queried by id
type Tracker struct {
	mu        sync.RWMutex
	records   map[string]*record
	retention time.Duration
}

type record struct {
	submission    *relay.Submission
	terminalSince time.Time
}

func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{
		records:   make(map[string]*record),
		retention: retention,
	}
}

// Track stores submission under its ID
func (t *Tracker) Track(submission *relay.Submission) {
	t.mu.Lock()
	t.records[submission.ID] = &record{submission: submission}
	t.mu.Unlock()
}

// Get retrieves a submission by ID
func (t *Tracker) Get(id string) (*relay.Submission, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("submission not found: %s", id)
	}
	return record.submission, nil
}

// Evict removes the submissions that have been terminal for longer than the
// retention, and returns how many were removed
func (t *Tracker) Evict(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, record := range t.records {
		if !record.submission.State().Terminal() {
			continue
		}

		if record.terminalSince.IsZero() {
			record.terminalSince = now
		}

		if now.Sub(record.terminalSince) >= t.retention {
			delete(t.records, id)
			evicted++
		}
	}
	return evicted
}

// Count returns the number of tracked submissions
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.records)
}
