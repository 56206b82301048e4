package admission

import (
	"sync"
	"time"
)

// DedupWindow suppresses rapid duplicate submissions of the same request key.
// It guards against chat-client message replay and double delivery, not
// against legitimate repeated requests after the window elapses.
type DedupWindow struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewDedupWindow creates a dedup window with the given expiry.
func NewDedupWindow(window time.Duration) *DedupWindow {
	return &DedupWindow{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// ShouldAdmit reports whether the request key has not been seen within the
// window. A fresh key is recorded; a duplicate leaves state unchanged.
func (w *DedupWindow) ShouldAdmit(platform, user, rawQuery string) bool {
	key := platform + ":" + user + ":" + rawQuery

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if seenAt, ok := w.seen[key]; ok {
		if now.Sub(seenAt) < w.window {
			return false
		}
		delete(w.seen, key)
	}

	w.seen[key] = now
	w.sweepLocked(now)
	return true
}

// sweepLocked drops expired entries. Must be called with the lock held.
func (w *DedupWindow) sweepLocked(now time.Time) {
	for key, seenAt := range w.seen {
		if now.Sub(seenAt) >= w.window {
			delete(w.seen, key)
		}
	}
}
