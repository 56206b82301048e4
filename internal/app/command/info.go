package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const version = "1.0.0"

// InfoModule provides informational commands.
func InfoModule() *Module {
	return &Module{
		Name: "info",
		Commands: map[string]Handler{
			"help":        cmdHelp,
			"commands":    cmdCommands,
			"ping":        cmdPing,
			"stats":       cmdStats,
			"uptime":      cmdUptime,
			"version":     cmdVersion,
			"queuecount":  cmdQueueCount,
			"currentuser": cmdCurrentUser,
			"lastplayed":  cmdLastPlayed,
			"topusers":    cmdTopUsers,
		},
	}
}

func cmdHelp(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, m := range env.Modules() {
		fmt.Fprintf(&b, "\n%s:\n", m.Name)

		verbs := make([]string, 0, len(m.Commands))
		for verb := range m.Commands {
			verbs = append(verbs, verb)
		}
		sort.Strings(verbs)
		for _, verb := range verbs {
			fmt.Fprintf(&b, " - %s\n", verb)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func cmdCommands(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	var verbs []string
	for _, m := range env.Modules() {
		for verb := range m.Commands {
			verbs = append(verbs, verb)
		}
	}
	sort.Strings(verbs)
	return strings.Join(verbs, ", "), nil
}

func cmdPing(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	return "Pong!", nil
}

func cmdStats(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	return fmt.Sprintf("Songs in queue: %d, Votes: %d, Users requested: %d, Songs played: %d",
		env.Queue.Len(), env.Ballot.Count(), env.Ledger.Users(), env.PlayedCount()), nil
}

func cmdUptime(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	diff := time.Since(env.StartedAt)
	h := int(diff.Hours())
	m := int(diff.Minutes()) % 60
	s := int(diff.Seconds()) % 60
	return fmt.Sprintf("Uptime: %dh %dm %ds", h, m, s), nil
}

func cmdVersion(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	return "Version " + version, nil
}

func cmdQueueCount(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	return fmt.Sprintf("Songs in queue: %d", env.Queue.Len()), nil
}

func cmdCurrentUser(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	current, ok := env.Current()
	if !ok {
		return "No song playing", nil
	}
	return fmt.Sprintf("Requested by %s", current.RequestedBy), nil
}

func cmdLastPlayed(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	last, ok := env.LastPlayed()
	if !ok {
		return "No songs have been played yet.", nil
	}
	return fmt.Sprintf("Last played: %s (requested by %s)", last.Track.Name, last.RequestedBy), nil
}

func cmdTopUsers(ctx context.Context, user, platform string, args []string, env *Env) (string, error) {
	top := env.Ledger.Top(5)
	if len(top) == 0 {
		return "No requests yet.", nil
	}

	var b strings.Builder
	b.WriteString("Top users:\n")
	for _, uc := range top {
		fmt.Fprintf(&b, "%s: %d requests\n", uc.Key, uc.Count)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
