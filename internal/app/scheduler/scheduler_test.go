package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roxytools/roxy-stream/internal/app/queue"
	"github.com/roxytools/roxy-stream/internal/app/votes"
	"github.com/roxytools/roxy-stream/internal/domain/track"
	"github.com/roxytools/roxy-stream/internal/infra/spotify"
)

type fakePlayer struct {
	mu         sync.Mutex
	devices    []spotify.Device
	devicesErr error
	playErr    error
	plays      []string
}

func (f *fakePlayer) Devices(ctx context.Context) ([]spotify.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, f.devicesErr
}

func (f *fakePlayer) Play(ctx context.Context, deviceID, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.plays = append(f.plays, uri)
	return nil
}

func (f *fakePlayer) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.plays))
	copy(out, f.plays)
	return out
}

func (f *fakePlayer) setPlayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func testRequest(id string, duration time.Duration) track.Request {
	return track.Request{
		Track: track.Track{
			ID:       id,
			Name:     "Song " + id,
			Artists:  []string{"Artist"},
			Duration: duration,
			URI:      "spotify:track:" + id,
		},
		RequestedBy: "alice",
		Platform:    "twitch",
	}
}

func newTestScheduler(player Player) (*Scheduler, *queue.Queue, *votes.Ballot) {
	q := queue.New(nil)
	ballot := votes.NewBallot(3)
	s := New(q, ballot, player, Config{
		EndBuffer:        10 * time.Millisecond,
		FallbackDuration: 50 * time.Millisecond,
		RetryDelay:       30 * time.Millisecond,
	})
	return s, q, ballot
}

func TestScheduler_PlaysThroughQueue(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Name: "Desk", Active: true}}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", 30*time.Millisecond))
	q.Push(testRequest("b", 30*time.Millisecond))

	s.Kick()

	require.Eventually(t, func() bool {
		return s.PlayedCount() == 2 && s.State() == StateIdle
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"spotify:track:a", "spotify:track:b"}, player.played())
	assert.Equal(t, 0, q.Len())
	_, ok := s.Current()
	assert.False(t, ok)

	last, ok := s.LastPlayed()
	require.True(t, ok)
	assert.Equal(t, "b", last.Track.ID)
}

func TestScheduler_FallbackTimerOnUnknownDuration(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", 0))
	s.Kick()

	require.Eventually(t, func() bool {
		return s.PlayedCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_KickWithEmptyQueue(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, _, _ := newTestScheduler(player)
	defer s.Close()

	s.Kick()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, player.played())
}

func TestScheduler_DeviceUnavailable(t *testing.T) {
	player := &fakePlayer{} // no devices
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", time.Minute))
	s.Kick()

	// The request goes back to the queue front and the scheduler parks idle.
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 1, q.Len())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Empty(t, player.played())

	// A device appearing later lets the next kick succeed.
	player.mu.Lock()
	player.devices = []spotify.Device{{ID: "dev1", Active: true}}
	player.mu.Unlock()

	s.Kick()
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, []string{"spotify:track:a"}, player.played())
}

func TestScheduler_DeviceLookupError(t *testing.T) {
	player := &fakePlayer{devicesErr: errors.New("network down")}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", time.Minute))
	s.Kick()

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 1, q.Len(), "request survives the failure")
}

func TestScheduler_PlayFailureRecovers(t *testing.T) {
	player := &fakePlayer{
		devices: []spotify.Device{{ID: "dev1", Active: true}},
		playErr: errors.New("playback error"),
	}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", 30*time.Millisecond))
	s.Kick()

	// The failed request is back at the front and the scheduler recovers.
	assert.Equal(t, StateRecovering, s.State())
	assert.Equal(t, 1, q.Len())

	// Once the player works again, the retry delay expires into a dequeue.
	player.setPlayErr(nil)
	require.Eventually(t, func() bool {
		return s.PlayedCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"spotify:track:a"}, player.played())
}

func TestScheduler_Skip(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	assert.ErrorIs(t, s.Skip(), ErrNoTrack)

	q.Push(testRequest("a", time.Hour))
	q.Push(testRequest("b", time.Hour))
	s.Kick()

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", current.Track.ID)

	require.NoError(t, s.Skip())

	current, ok = s.Current()
	require.True(t, ok)
	assert.Equal(t, "b", current.Track.ID)
	assert.Equal(t, 1, s.PlayedCount())

	// Skipping the last song parks the scheduler idle.
	require.NoError(t, s.Skip())
	assert.Equal(t, StateIdle, s.State())
	_, ok = s.Current()
	assert.False(t, ok)
	assert.Equal(t, 2, s.PlayedCount())
}

func TestScheduler_SkipCancelsCompletionTimer(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", 150*time.Millisecond))
	q.Push(testRequest("b", time.Hour))
	s.Kick()

	require.NoError(t, s.Skip())

	// If the first song's timer survived the skip, its stale fire would end
	// the second song early.
	time.Sleep(300 * time.Millisecond)
	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "b", current.Track.ID)
	assert.Equal(t, 1, s.PlayedCount())
}

func TestScheduler_Repeat(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	assert.ErrorIs(t, s.Repeat(), ErrNoTrack)

	q.Push(testRequest("a", time.Hour))
	s.Kick()
	require.NoError(t, s.Repeat())

	assert.Equal(t, []string{"spotify:track:a", "spotify:track:a"}, player.played())
	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", current.Track.ID)
}

func TestScheduler_BallotClearedOnSongChange(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, q, ballot := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", time.Hour))
	q.Push(testRequest("b", time.Hour))
	s.Kick()

	ballot.Vote("alice", true)
	ballot.Vote("bob", true)
	require.Equal(t, 2, ballot.Count())

	require.NoError(t, s.Skip())
	assert.Equal(t, 0, ballot.Count(), "votes do not carry over to the next song")
}

func TestScheduler_SetDeviceOverridesCache(t *testing.T) {
	player := &fakePlayer{devicesErr: errors.New("should not be called")}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	s.SetDevice("manual-dev")
	q.Push(testRequest("a", time.Hour))
	s.Kick()

	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, []string{"spotify:track:a"}, player.played())
}

func TestScheduler_PrefersActiveDevice(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{
		{ID: "dev1", Name: "Idle box"},
		{ID: "dev2", Name: "Active box", Active: true},
	}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", time.Hour))
	s.Kick()

	s.mu.Lock()
	deviceID := s.deviceID
	s.mu.Unlock()
	assert.Equal(t, "dev2", deviceID)
}

func TestScheduler_Events(t *testing.T) {
	player := &fakePlayer{devices: []spotify.Device{{ID: "dev1", Active: true}}}
	s, q, _ := newTestScheduler(player)
	defer s.Close()

	q.Push(testRequest("a", time.Hour))
	s.Kick()

	select {
	case e := <-s.Events():
		assert.Equal(t, EventTrackStarted, e.Type)
		require.NotNil(t, e.Request)
		assert.Equal(t, "a", e.Request.Track.ID)
		assert.Equal(t, StatePlaying, e.State)
	case <-time.After(time.Second):
		t.Fatal("expected a track started event")
	}
}
