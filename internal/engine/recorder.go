package engine

import (
	"sync"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// Recorder is the strategy log hook. While disabled it records nothing.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	seq     int
	entries []models.LogEntry
}

// NewRecorder creates a recorder in the given state
func NewRecorder(enabled bool) *Recorder {
	return &Recorder{enabled: enabled}
}

// SetEnabled flips the single logging flag
func (r *Recorder) SetEnabled(enabled bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Enabled reports the logging flag
func (r *Recorder) Enabled() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Record appends an entry when enabled
func (r *Recorder) Record(operation string, inputs map[string]interface{}, result interface{}) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}
	r.seq++
	r.entries = append(r.entries, models.LogEntry{
		Seq:       r.seq,
		Operation: operation,
		Inputs:    inputs,
		Result:    result,
	})
}

// Entries returns a copy of the recorded entries
func (r *Recorder) Entries() []models.LogEntry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LogEntry(nil), r.entries...)
}

// Since returns the entries recorded after the given sequence number
func (r *Recorder) Since(seq int) []models.LogEntry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.Seq > seq {
			return append([]models.LogEntry(nil), r.entries[i:]...)
		}
	}
	return nil
}

// Seq returns the sequence number of the most recent entry
func (r *Recorder) Seq() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Clear drops every entry; sequence numbers keep counting
func (r *Recorder) Clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
