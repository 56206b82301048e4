// Package spotify provides a client for the Spotify playback API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/roxytools/roxy-stream/internal/domain/track"
)

// Client is a Spotify playback client.
type Client struct {
	client     *spotify.Client
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Device represents an available playback device.
type Device struct {
	ID     string
	Name   string
	Active bool
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
	)

	// The oauth2 transport refreshes the access token on demand.
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	httpClient := auth.Client(ctx, token)

	return &Client{
		client:     spotify.New(httpClient),
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// SearchTrack searches for the best-matching track for a free-text query.
// Returns nil when nothing matches.
func (c *Client) SearchTrack(ctx context.Context, query string) (*track.Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, nil
	}

	return convertTrack(&result.Tracks.Tracks[0]), nil
}

// Devices lists the available playback devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var devices []spotify.PlayerDevice
	err := c.retry(func() error {
		d, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		devices = d
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	result := make([]Device, len(devices))
	for i, d := range devices {
		result[i] = Device{
			ID:     string(d.ID),
			Name:   d.Name,
			Active: d.Active,
		}
	}
	return result, nil
}

// Play starts playback of a track URI on the given device.
func (c *Client) Play(ctx context.Context, deviceID, uri string) error {
	id := spotify.ID(deviceID)
	err := c.retry(func() error {
		return c.client.PlayOpt(ctx, &spotify.PlayOptions{
			DeviceID: &id,
			URIs:     []spotify.URI{spotify.URI(uri)},
		})
	})
	return errors.Wrap(err, "failed to start playback")
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return errors.Wrap(c.client.Pause(ctx), "failed to pause playback")
}

// Resume resumes paused playback without changing the track.
func (c *Client) Resume(ctx context.Context) error {
	return errors.Wrap(c.client.Play(ctx), "failed to resume playback")
}

// SetVolume sets the playback volume (0-100).
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return errors.Newf("volume out of range: %d", percent)
	}
	return errors.Wrap(c.client.Volume(ctx, percent), "failed to set volume")
}

// TransferPlayback switches playback to another device.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string) error {
	err := c.client.TransferPlayback(ctx, spotify.ID(deviceID), true)
	return errors.Wrap(err, "failed to transfer playback")
}

// convertTrack converts a Spotify FullTrack to the domain Track.
func convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return &track.Track{
		ID:       string(t.ID),
		Name:     t.Name,
		Artists:  artists,
		Album:    t.Album.Name,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URI:      string(t.URI),
	}
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
