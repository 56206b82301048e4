package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roxytools/roxy-stream/internal/app/queue"
	"github.com/roxytools/roxy-stream/internal/app/votes"
)

// MusicModule provides playback and queue commands for all users.
func MusicModule() *Module {
	return &Module{
		Name: "music",
		Commands: map[string]Handler{
			"queue":      cmdQueue,
			"current":    cmdCurrent,
			"nowplaying": cmdNowPlaying,
			"nextsong":   cmdNextSong,
			"skip":       cmdSkip,
			"voteskip":   cmdVoteSkip,
			"clearvotes": cmdClearVotes,
			"repeat":     cmdRepeat,
			"shuffle":    cmdShuffle,
			"move":       cmdMove,
		},
	}
}

func cmdQueue(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	items := env.Queue.Items()
	if len(items) == 0 {
		return "Queue is empty.", nil
	}

	var b strings.Builder
	for i, r := range items {
		fmt.Fprintf(&b, "%d. %s (requested by %s)\n", i+1, r.Track.Name, r.RequestedBy)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func cmdCurrent(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	current, ok := env.Current()
	if !ok {
		return "No song is currently playing.", nil
	}
	return fmt.Sprintf("Now playing: %s (requested by %s)", current.Track.Name, current.RequestedBy), nil
}

func cmdNowPlaying(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	current, ok := env.Current()
	if !ok {
		return "No song is playing.", nil
	}

	t := current.Track
	total := int(t.Duration.Seconds())
	return fmt.Sprintf("%s by %s [%s] %d:%02d", t.Name, t.ArtistLine(), t.Album, total/60, total%60), nil
}

func cmdNextSong(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	next, ok := env.Queue.PeekFront()
	if !ok {
		return "Queue empty", nil
	}
	return fmt.Sprintf("Next: %s", next.Track.Name), nil
}

func cmdSkip(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	skipped, ok := env.Current()
	if !ok {
		return "No song is playing to skip.", nil
	}

	if err := env.Advance(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Skipped: %s", skipped.Track.Name), nil
}

func cmdVoteSkip(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	current, hasCurrent := env.Current()

	outcome, count := env.Ballot.Vote(user, hasCurrent)
	switch outcome {
	case votes.NoCurrentSong:
		return "No song is playing to vote skip.", nil
	case votes.AlreadyVoted:
		return fmt.Sprintf("%s already voted.", user), nil
	case votes.ThresholdReached:
		if err := env.Advance(); err != nil {
			return "", err
		}
		return fmt.Sprintf("Vote threshold reached. Skipped: %s", current.Track.Name), nil
	default:
		return fmt.Sprintf("%s voted to skip (%d/%d)", user, count, env.Ballot.Threshold()), nil
	}
}

func cmdClearVotes(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	env.Ballot.Clear()
	return "All vote skip votes cleared.", nil
}

func cmdRepeat(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	current, ok := env.Current()
	if !ok {
		return "Nothing to repeat.", nil
	}

	if err := env.Repeat(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Repeating: %s", current.Track.Name), nil
}

func cmdShuffle(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if env.Queue.Len() == 0 {
		return "Queue is empty.", nil
	}
	env.Queue.Shuffle()
	return "Queue shuffled.", nil
}

func cmdMove(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if !env.Roster.IsAdmin(platform, user) {
		return env.Message("not_authorized"), nil
	}
	if len(args) < 2 {
		return "Invalid indexes.", nil
	}

	from, errFrom := strconv.Atoi(args[0])
	to, errTo := strconv.Atoi(args[1])
	if errFrom != nil || errTo != nil {
		return "Invalid indexes.", nil
	}

	moved, err := env.Queue.Move(from, to)
	if err != nil {
		if errors.Is(err, queue.ErrBadIndex) {
			return "Invalid indexes.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Moved %q from %d to %d", moved.Track.Name, from, to), nil
}
