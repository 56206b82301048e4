// Package queue provides the ordered, persisted request queue.
package queue

import (
	"math/rand"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/roxytools/roxy-stream/internal/domain/track"
)

// ErrBadIndex is returned for out-of-range operator indices.
var ErrBadIndex = errors.New("index out of range")

// Queue is an ordered sequence of requests, persisted on every mutation.
// Persistence failures are logged; in-memory state stays authoritative.
type Queue struct {
	mu    sync.Mutex
	items []track.Request
	store *Store
}

// New creates a queue backed by the store, loading any persisted state.
func New(store *Store) *Queue {
	q := &Queue{store: store}
	if store != nil {
		q.items = store.Load()
	}
	return q
}

// Push appends a request to the back of the queue.
func (q *Queue) Push(r track.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, r)
	q.persistLocked()
}

// PushFront returns a request to the front of the queue.
// Used by the scheduler so a failed play never loses the request.
func (q *Queue) PushFront(r track.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append([]track.Request{r}, q.items...)
	q.persistLocked()
}

// PopFront removes and returns the front request.
func (q *Queue) PopFront() (track.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return track.Request{}, false
	}
	r := q.items[0]
	q.items = q.items[1:]
	q.persistLocked()
	return r, true
}

// PeekFront returns the front request without removing it.
func (q *Queue) PeekFront() (track.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return track.Request{}, false
	}
	return q.items[0], true
}

// Remove removes the request at the 1-based index.
func (q *Queue) Remove(index int) (track.Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 1 || index > len(q.items) {
		return track.Request{}, ErrBadIndex
	}
	i := index - 1
	removed := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	q.persistLocked()
	return removed, nil
}

// Move moves the request at the 1-based index from to position to.
func (q *Queue) Move(from, to int) (track.Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if from < 1 || from > n || to < 1 || to > n {
		return track.Request{}, ErrBadIndex
	}

	moved := q.items[from-1]
	q.items = append(q.items[:from-1], q.items[from:]...)

	rest := q.items[to-1:]
	q.items = append(q.items[:to-1:to-1], append([]track.Request{moved}, rest...)...)
	q.persistLocked()
	return moved, nil
}

// Shuffle applies a uniform random permutation to the queue.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
	q.persistLocked()
}

// Clear removes all requests.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	q.persistLocked()
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queued requests in order.
func (q *Queue) Items() []track.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]track.Request, len(q.items))
	copy(items, q.items)
	return items
}

// persistLocked saves the queue, logging failures. Must be called with the
// lock held.
func (q *Queue) persistLocked() {
	if q.store == nil {
		return
	}
	if err := q.store.Save(q.items); err != nil {
		zlog.Error().Err(err).Msg("failed to persist queue")
	}
}
