// Package track provides the Track and Request domain entities.
package track

import (
	"strings"
	"time"
)

// Track represents a playable Spotify track.
// Contains only information retrieved from the Spotify API; never mutated locally.
type Track struct {
	ID       string        `json:"id"`       // Spotify Track ID
	Name     string        `json:"name"`     // Track name
	Artists  []string      `json:"artists"`  // Artist names, in release order
	Album    string        `json:"album"`    // Album name
	Duration time.Duration `json:"duration"` // Track duration (0 when unknown)
	URI      string        `json:"uri"`      // Spotify URI (spotify:track:...)
}

// ArtistLine returns the artist names joined for display.
func (t *Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Request represents an admitted song request.
// Immutable after creation except for its position within the queue.
type Request struct {
	Track       Track     `json:"track"`
	RequestedBy string    `json:"requestedBy"`
	Platform    string    `json:"platform"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NewRequest creates a request for a resolved track.
func NewRequest(t Track, platform, user string) Request {
	return Request{
		Track:       t,
		RequestedBy: user,
		Platform:    platform,
		RequestedAt: time.Now(),
	}
}
