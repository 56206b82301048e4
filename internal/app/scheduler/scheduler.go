package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/roxytools/roxy-stream/internal/app/queue"
	"github.com/roxytools/roxy-stream/internal/app/votes"
	"github.com/roxytools/roxy-stream/internal/domain/track"
	"github.com/roxytools/roxy-stream/internal/infra/spotify"
)

// ErrNoTrack is returned when an operation needs a current song and none is playing.
var ErrNoTrack = errors.New("no track playing")

// Player is the media-control boundary the scheduler drives.
type Player interface {
	Devices(ctx context.Context) ([]spotify.Device, error)
	Play(ctx context.Context, deviceID, uri string) error
}

// Config holds scheduler configuration.
type Config struct {
	EndBuffer        time.Duration // Added to the track duration before advancing
	FallbackDuration time.Duration // Completion timer when the duration is unknown
	RetryDelay       time.Duration // Delay before retrying after a play failure
}

// Scheduler owns the current song and the completion timer. All transitions
// run under one mutex; the queue, current song, and timer handle move as a
// single unit.
type Scheduler struct {
	mu sync.Mutex

	state   State
	current *track.Request
	history []track.Request

	queue  *queue.Queue
	ballot *votes.Ballot
	player Player

	// Cached active device id; re-resolved only when empty.
	deviceID string

	// Exactly one completion/retry timer may be armed at a time. The
	// generation counter invalidates a timer that fired but lost the race
	// against a superseding transition.
	timerCancel func()
	timerGen    uint64

	config  Config
	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler over the queue, ballot, and player.
func New(q *queue.Queue, ballot *votes.Ballot, player Player, config Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		state:   StateIdle,
		queue:   q,
		ballot:  ballot,
		player:  player,
		config:  config,
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (s *Scheduler) Events() <-chan Event {
	return s.eventCh
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the currently playing request.
func (s *Scheduler) Current() (track.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return track.Request{}, false
	}
	return *s.current, true
}

// LastPlayed returns the most recently finished or skipped request.
func (s *Scheduler) LastPlayed() (track.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return track.Request{}, false
	}
	return s.history[len(s.history)-1], true
}

// PlayedCount returns the number of finished or skipped requests.
func (s *Scheduler) PlayedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Kick attempts a dequeue if the scheduler is idle with pending work.
// Safe to call from the watchdog and after every queue push.
func (s *Scheduler) Kick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle && s.queue.Len() > 0 {
		s.advanceLocked()
	}
}

// Skip ends the current song and advances to the next one.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoTrack
	}

	// Cancel the armed timer before any state change so a stale fire cannot
	// trigger a second advance.
	s.cancelTimerLocked()

	skipped := *s.current
	s.history = append(s.history, skipped)
	s.setCurrentLocked(nil)
	s.state = StateIdle
	s.sendEventLocked(Event{Type: EventTrackSkipped, Request: &skipped, State: s.state})

	s.advanceLocked()
	return nil
}

// Repeat re-queues the current song at the front and restarts it.
func (s *Scheduler) Repeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoTrack
	}

	s.cancelTimerLocked()

	repeated := *s.current
	s.queue.PushFront(repeated)
	s.setCurrentLocked(nil)
	s.state = StateIdle

	s.advanceLocked()
	return nil
}

// Close cancels timers and releases resources.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.setCurrentLocked(nil)
	s.state = StateIdle
	s.mu.Unlock()

	s.cancel()
	close(s.eventCh)
}

// advanceLocked pops the queue front and drives it to Playing, requeueing it
// at the front on any failure. Must be called with the lock held.
func (s *Scheduler) advanceLocked() {
	s.cancelTimerLocked()

	req, ok := s.queue.PopFront()
	if !ok {
		s.setCurrentLocked(nil)
		s.state = StateIdle
		s.sendEventLocked(Event{Type: EventQueueEmpty, State: s.state})
		return
	}

	s.state = StateResolving
	s.setCurrentLocked(&req)

	deviceID, err := s.resolveDeviceLocked()
	if err != nil || deviceID == "" {
		if err != nil {
			zlog.Error().Err(err).Msg("failed to resolve playback device")
		} else {
			zlog.Warn().Msg("no playback device available, re-queueing track")
		}
		// Not lost: back to the queue front. No retry timer; the next
		// dequeue or watchdog tick picks it up.
		s.queue.PushFront(req)
		s.setCurrentLocked(nil)
		s.state = StateIdle
		s.sendEventLocked(Event{Type: EventDeviceUnavailable, Request: &req, State: s.state})
		return
	}

	if err := s.player.Play(s.ctx, deviceID, req.Track.URI); err != nil {
		zlog.Error().Err(err).Str("track", req.Track.Name).Msg("play command failed")
		s.queue.PushFront(req)
		s.setCurrentLocked(nil)
		s.state = StateRecovering
		s.sendEventLocked(Event{Type: EventPlaybackFailed, Request: &req, State: s.state})
		// Bounded retry: wait out the delay, then attempt the next dequeue.
		s.armTimerLocked(s.config.RetryDelay, s.onRetryDelay)
		return
	}

	s.state = StatePlaying
	zlog.Info().Str("track", req.Track.Name).Str("requested_by", req.RequestedBy).Msg("now playing")
	s.sendEventLocked(Event{Type: EventTrackStarted, Request: &req, State: s.state})

	wait := s.config.FallbackDuration
	if d := req.Track.Duration; d > 0 {
		wait = d + s.config.EndBuffer
	} else {
		zlog.Warn().Str("track", req.Track.Name).Dur("fallback", wait).Msg("track duration unknown, using fallback timer")
	}
	s.armTimerLocked(wait, s.onTrackEnd)
}

// onTrackEnd handles a completion timer fire.
func (s *Scheduler) onTrackEnd(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.timerGen {
		// Superseded by a skip or another transition.
		return
	}
	s.timerCancel = nil

	if s.current == nil {
		return
	}

	ended := *s.current
	s.history = append(s.history, ended)
	s.setCurrentLocked(nil)
	s.state = StateIdle
	s.sendEventLocked(Event{Type: EventTrackEnded, Request: &ended, State: s.state})

	s.advanceLocked()
}

// onRetryDelay handles the recovery delay after a failed play command.
func (s *Scheduler) onRetryDelay(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.timerGen || s.state != StateRecovering {
		return
	}
	s.timerCancel = nil
	s.state = StateIdle

	s.advanceLocked()
}

// resolveDeviceLocked returns the cached device id, resolving one when the
// cache is empty. Prefers the device reporting itself active, otherwise the
// first available. Must be called with the lock held.
func (s *Scheduler) resolveDeviceLocked() (string, error) {
	if s.deviceID != "" {
		return s.deviceID, nil
	}

	devices, err := s.player.Devices(s.ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", nil
	}

	chosen := devices[0]
	for _, d := range devices {
		if d.Active {
			chosen = d
			break
		}
	}

	zlog.Info().Str("device", chosen.Name).Str("device_id", chosen.ID).Msg("using playback device")
	s.deviceID = chosen.ID
	return chosen.ID, nil
}

// SetDevice overrides the cached playback device id.
func (s *Scheduler) SetDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceID = deviceID
}

// setCurrentLocked changes the current song and clears the vote ballot.
// Must be called with the lock held.
func (s *Scheduler) setCurrentLocked(req *track.Request) {
	s.current = req
	s.ballot.Clear()
}

// armTimerLocked arms the single completion/retry timer slot. Must be called
// with the lock held.
func (s *Scheduler) armTimerLocked(d time.Duration, fn func(gen uint64)) {
	s.cancelTimerLocked()

	s.timerGen++
	gen := s.timerGen

	ctx, cancel := context.WithCancel(s.ctx)
	s.timerCancel = cancel

	timer := time.NewTimer(d)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			fn(gen)
		}
	}()
}

// cancelTimerLocked cancels any armed timer and invalidates in-flight fires.
// Must be called with the lock held.
func (s *Scheduler) cancelTimerLocked() {
	s.timerGen++
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

// sendEventLocked sends an event without blocking. Must be called with the
// lock held.
func (s *Scheduler) sendEventLocked(e Event) {
	select {
	case s.eventCh <- e:
	case <-s.ctx.Done():
	default:
		// Channel full, drop event.
	}
}
