package spotify

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	zspotify "github.com/zmb3/spotify/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "all empty", cfg: Config{}},
		{name: "missing refresh token", cfg: Config{ClientID: "id", ClientSecret: "secret"}},
		{name: "missing secret", cfg: Config{ClientID: "id", RefreshToken: "token"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}

	client, err := New(context.Background(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "token",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestClient_SearchTrackEmptyQuery(t *testing.T) {
	client, err := New(context.Background(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "token",
	})
	require.NoError(t, err)

	_, err = client.SearchTrack(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_SetVolumeRange(t *testing.T) {
	client, err := New(context.Background(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "token",
	})
	require.NoError(t, err)

	assert.Error(t, client.SetVolume(context.Background(), -1))
	assert.Error(t, client.SetVolume(context.Background(), 101))
}

func TestConvertTrack(t *testing.T) {
	full := &zspotify.FullTrack{
		SimpleTrack: zspotify.SimpleTrack{
			ID:   "abc123",
			Name: "Get Lucky",
			Artists: []zspotify.SimpleArtist{
				{Name: "Daft Punk"},
				{Name: "Pharrell Williams"},
			},
			Duration: 248000,
			URI:      "spotify:track:abc123",
		},
		Album: zspotify.SimpleAlbum{Name: "Random Access Memories"},
	}

	got := convertTrack(full)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, "Get Lucky", got.Name)
	assert.Equal(t, []string{"Daft Punk", "Pharrell Williams"}, got.Artists)
	assert.Equal(t, "Random Access Memories", got.Album)
	assert.Equal(t, 248*time.Second, got.Duration)
	assert.Equal(t, "spotify:track:abc123", got.URI)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("rate limit exceeded"), want: true},
		{name: "429", err: errors.New("HTTP 429"), want: true},
		{name: "503", err: errors.New("HTTP 503 service unavailable"), want: true},
		{name: "not found", err: errors.New("HTTP 404"), want: false},
		{name: "bad request", err: errors.New("invalid payload"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestClient_RetryStopsOnPermanentError(t *testing.T) {
	c := &Client{maxRetries: 3, retryDelay: time.Millisecond}

	calls := 0
	err := c.retry(func() error {
		calls++
		return errors.New("HTTP 400 bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestClient_RetryExhaustsOnTransientError(t *testing.T) {
	c := &Client{maxRetries: 3, retryDelay: time.Millisecond}

	calls := 0
	err := c.retry(func() error {
		calls++
		return errors.New("HTTP 503")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestClient_RetrySucceedsAfterTransientError(t *testing.T) {
	c := &Client{maxRetries: 3, retryDelay: time.Millisecond}

	calls := 0
	err := c.retry(func() error {
		calls++
		if calls < 2 {
			return errors.New("HTTP 429")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
