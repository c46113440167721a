// Package transcript provides the append-only per-session event log.
package transcript

import (
	"sync"

	"github.com/a2alab/relay/internal/domain"
)

// Log is an append-only, time-ordered record of observed events for one
// session. The driver is the only writer; viewers may read concurrently
// while the session is still running. Entries are never removed or
// reordered once appended.
type Log struct {
	mu      sync.RWMutex
	entries []domain.TranscriptEntry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry and returns its index.
func (l *Log) Append(entry domain.TranscriptEntry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return len(l.entries) - 1
}

// MarkRelayed flags the entry whose text became the next hop's inbound
// message. This is the only field ever written after append.
func (l *Log) MarkRelayed(idx int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx >= 0 && idx < len(l.entries) {
		l.entries[idx].Relayed = true
	}
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a snapshot copy of all entries in observation order.
func (l *Log) Entries() []domain.TranscriptEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.TranscriptEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filter returns a snapshot of the entries matching any of the given kinds,
// preserving order. An empty kind list returns everything.
func (l *Log) Filter(kinds ...domain.EventKind) []domain.TranscriptEntry {
	if len(kinds) == 0 {
		return l.Entries()
	}
	want := make(map[domain.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.TranscriptEntry
	for _, e := range l.entries {
		if _, ok := want[e.Kind]; ok {
			out = append(out, e)
		}
	}
	return out
}
