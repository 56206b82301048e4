package admission

import (
	"sort"
	"sync"
	"time"
)

// UserRecord tracks a single user's request history.
// The count is monotonically increasing; it is never reset.
type UserRecord struct {
	Count         int
	LastRequestAt time.Time
}

// Ledger holds per-user request records keyed by "platform:user".
type Ledger struct {
	mu      sync.RWMutex
	records map[string]*UserRecord
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[string]*UserRecord),
	}
}

// Get returns a copy of the record for the key, and whether one exists.
func (l *Ledger) Get(key string) (UserRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.records[key]
	if !ok {
		return UserRecord{}, false
	}
	return *r, true
}

// Commit increments the user's count and stamps the request time.
func (l *Ledger) Commit(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[key]
	if !ok {
		r = &UserRecord{}
		l.records[key] = r
	}
	r.Count++
	r.LastRequestAt = time.Now()
}

// Users returns the number of distinct users that have requested.
func (l *Ledger) Users() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// UserCount is a ledger entry for ranking output.
type UserCount struct {
	Key   string
	Count int
}

// Top returns up to n users ordered by descending request count.
func (l *Ledger) Top(n int) []UserCount {
	l.mu.RLock()
	counts := make([]UserCount, 0, len(l.records))
	for key, r := range l.records {
		counts = append(counts, UserCount{Key: key, Count: r.Count})
	}
	l.mu.RUnlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})

	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
