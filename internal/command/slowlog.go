/*
file: lucidkv/internal/command/slowlog.go

Slowlog is a bounded ring of recently executed commands that exceeded a
configured latency threshold, the same single-writer/multi-reader
shared resource spec.md §5 describes for the MONITOR broadcaster.
*/
package command

import (
	"sync"
	"time"

	"github.com/lucidkv/lucidkv/internal/session"
)

type SlowlogEntry struct {
	ID        int64
	Timestamp time.Time
	Duration  time.Duration
	Args      [][]byte
	ClientID  string
}

type Slowlog struct {
	mu        sync.Mutex
	threshold time.Duration
	maxLen    int
	nextID    int64
	entries   []SlowlogEntry // newest first
}

func NewSlowlog(thresholdMicros int64, maxLen int) *Slowlog {
	return &Slowlog{
		threshold: time.Duration(thresholdMicros) * time.Microsecond,
		maxLen:    maxLen,
	}
}

// Record appends an entry if elapsed meets or exceeds the configured
// threshold. A non-positive threshold disables logging entirely,
// matching the upstream convention.
func (sl *Slowlog) Record(args [][]byte, elapsed time.Duration, s *session.Session) {
	if sl.threshold <= 0 || elapsed < sl.threshold {
		return
	}
	cp := make([][]byte, len(args))
	copy(cp, args)

	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.nextID++
	entry := SlowlogEntry{ID: sl.nextID, Timestamp: time.Now(), Duration: elapsed, Args: cp, ClientID: s.ID}
	sl.entries = append([]SlowlogEntry{entry}, sl.entries...)
	if len(sl.entries) > sl.maxLen {
		sl.entries = sl.entries[:sl.maxLen]
	}
}

func (sl *Slowlog) Entries(count int) []SlowlogEntry {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if count <= 0 || count > len(sl.entries) {
		count = len(sl.entries)
	}
	out := make([]SlowlogEntry, count)
	copy(out, sl.entries[:count])
	return out
}

func (sl *Slowlog) Reset() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.entries = nil
}

func (sl *Slowlog) Len() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.entries)
}
