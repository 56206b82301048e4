// Package votes provides the vote-skip coordinator.
package votes

import "sync"

// Outcome is the result of casting a vote.
type Outcome int

const (
	Counted          Outcome = iota // Vote counted, threshold not yet reached
	AlreadyVoted                    // User already voted for this song
	NoCurrentSong                   // Nothing playing, vote ignored
	ThresholdReached                // This vote reached the threshold
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Counted:
		return "counted"
	case AlreadyVoted:
		return "already_voted"
	case NoCurrentSong:
		return "no_current_song"
	case ThresholdReached:
		return "threshold_reached"
	}
	return "unknown"
}

// Ballot tallies skip votes scoped to the currently playing song.
type Ballot struct {
	mu        sync.Mutex
	threshold int
	voters    map[string]struct{}
}

// NewBallot creates a ballot with the given threshold.
func NewBallot(threshold int) *Ballot {
	return &Ballot{
		threshold: threshold,
		voters:    make(map[string]struct{}),
	}
}

// Vote casts a skip vote for the current song. hasCurrent tells the ballot
// whether anything is playing; votes without a current song are ignored.
// Votes are idempotent per user per song. Reaching the threshold clears the
// ballot; the caller is responsible for triggering the skip.
func (b *Ballot) Vote(user string, hasCurrent bool) (Outcome, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !hasCurrent {
		return NoCurrentSong, len(b.voters)
	}

	if _, ok := b.voters[user]; ok {
		return AlreadyVoted, len(b.voters)
	}

	b.voters[user] = struct{}{}
	if len(b.voters) >= b.threshold {
		b.voters = make(map[string]struct{})
		return ThresholdReached, 0
	}
	return Counted, len(b.voters)
}

// Count returns the number of votes against the current song.
func (b *Ballot) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voters)
}

// Threshold returns the configured vote threshold.
func (b *Ballot) Threshold() int {
	return b.threshold
}

// Clear discards all votes. Called whenever the current song changes.
func (b *Ballot) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voters = make(map[string]struct{})
}
