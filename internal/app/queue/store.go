package queue

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/roxytools/roxy-stream/internal/domain/track"
)

// Store persists the queue as a JSON array, rewritten in full on every save.
type Store struct {
	path string
}

// NewStore creates a store writing to the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted queue. A missing or unparsable file yields an
// empty queue, never an error the caller must abort on.
func (s *Store) Load() []track.Request {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var requests []track.Request
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil
	}
	return requests
}

// Save writes the queue to disk.
func (s *Store) Save(requests []track.Request) error {
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal queue")
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write queue file")
	}
	return nil
}
