package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_ArtistLine(t *testing.T) {
	tests := []struct {
		name    string
		artists []string
		want    string
	}{
		{name: "single artist", artists: []string{"Rick Astley"}, want: "Rick Astley"},
		{name: "multiple artists", artists: []string{"Daft Punk", "Pharrell Williams"}, want: "Daft Punk, Pharrell Williams"},
		{name: "no artists", artists: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Track{Artists: tt.artists}
			assert.Equal(t, tt.want, tr.ArtistLine())
		})
	}
}

func TestNewRequest(t *testing.T) {
	tr := Track{
		ID:       "abc123",
		Name:     "Get Lucky",
		Artists:  []string{"Daft Punk"},
		Duration: 4 * time.Minute,
		URI:      "spotify:track:abc123",
	}

	before := time.Now()
	req := NewRequest(tr, "twitch", "alice")

	assert.Equal(t, tr, req.Track)
	assert.Equal(t, "alice", req.RequestedBy)
	assert.Equal(t, "twitch", req.Platform)
	assert.False(t, req.RequestedAt.Before(before))
}
