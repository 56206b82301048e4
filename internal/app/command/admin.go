package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/roxytools/roxy-stream/internal/app/queue"
)

// AdminModule provides privileged queue and device commands.
// Every handler requires the user to be an admin on its platform;
// unauthorized attempts perform no mutation.
func AdminModule() *Module {
	return &Module{
		Name: "admin",
		Commands: map[string]Handler{
			"clearqueue": adminOnly(cmdClearQueue),
			"remove":     adminOnly(cmdRemove),
			"ban":        adminOnly(cmdBan),
			"unban":      adminOnly(cmdUnban),
			"pause":      adminOnly(cmdPause),
			"resume":     adminOnly(cmdResume),
			"volume":     adminOnly(cmdVolume),
			"setdevice":  adminOnly(cmdSetDevice),
		},
	}
}

// adminOnly wraps a handler with the admin authorization check.
func adminOnly(h Handler) Handler {
	return func(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
		if !env.Roster.IsAdmin(platform, user) {
			return env.Message("not_authorized"), nil
		}
		return h(ctx, user, platform, args, env)
	}
}

func cmdClearQueue(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	env.Queue.Clear()
	return "Queue cleared", nil
}

func cmdRemove(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if len(args) < 1 {
		return "Invalid index", nil
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return "Invalid index", nil
	}

	removed, err := env.Queue.Remove(index)
	if err != nil {
		if errors.Is(err, queue.ErrBadIndex) {
			return "Invalid index", nil
		}
		return "", err
	}
	return fmt.Sprintf("Removed %q", removed.Track.Name), nil
}

func cmdBan(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if len(args) < 1 {
		return "Missing user", nil
	}
	target := args[0]
	env.Roster.Ban(platform, target)
	return fmt.Sprintf("%s banned.", target), nil
}

func cmdUnban(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if len(args) < 1 {
		return "Missing user", nil
	}
	target := args[0]
	env.Roster.Unban(platform, target)
	return fmt.Sprintf("%s unbanned.", target), nil
}

func cmdPause(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if err := env.Player.Pause(ctx); err != nil {
		return "", err
	}
	return "Playback paused", nil
}

func cmdResume(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if err := env.Player.Resume(ctx); err != nil {
		return "", err
	}
	return "Playback resumed", nil
}

func cmdVolume(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if len(args) < 1 {
		return "Missing volume level", nil
	}
	level, err := strconv.Atoi(args[0])
	if err != nil || level < 0 || level > 100 {
		return "Invalid volume level", nil
	}

	if err := env.Player.SetVolume(ctx, level); err != nil {
		return "", err
	}
	return fmt.Sprintf("Volume set to %d%%", level), nil
}

func cmdSetDevice(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	if len(args) < 1 {
		return "Missing device id", nil
	}
	deviceID := args[0]

	if err := env.Player.TransferPlayback(ctx, deviceID); err != nil {
		return "", err
	}
	env.SetDevice(deviceID)
	return fmt.Sprintf("Playback switched to %s", deviceID), nil
}
