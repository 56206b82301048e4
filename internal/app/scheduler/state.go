// Package scheduler drives playback through a play/advance state machine.
package scheduler

import "github.com/roxytools/roxy-stream/internal/domain/track"

// State represents the scheduler state.
type State int

const (
	StateIdle       State = iota // No current song, no armed timer
	StateResolving               // Determining an active playback device
	StatePlaying                 // Play command issued, completion timer armed
	StateRecovering              // Last play attempt failed, retry delay pending
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePlaying:
		return "playing"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// EventType represents a scheduler event type.
type EventType int

const (
	EventTrackStarted      EventType = iota // Play command succeeded
	EventTrackEnded                         // Completion timer fired
	EventTrackSkipped                       // Track skipped explicitly or by vote
	EventQueueEmpty                         // Dequeue attempted on an empty queue
	EventDeviceUnavailable                  // No playback device could be resolved
	EventPlaybackFailed                     // Play command failed, recovery pending
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackSkipped:
		return "track_skipped"
	case EventQueueEmpty:
		return "queue_empty"
	case EventDeviceUnavailable:
		return "device_unavailable"
	case EventPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event represents a scheduler event.
type Event struct {
	Type    EventType
	Request *track.Request // Affected request (nil for queue-empty)
	State   State          // State after the transition
}
