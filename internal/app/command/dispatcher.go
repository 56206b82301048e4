// Package command routes chat events to the request pipeline or to
// registered plugin modules.
package command

import (
	"context"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/roxytools/roxy-stream/internal/app/admission"
	"github.com/roxytools/roxy-stream/internal/app/chat"
	"github.com/roxytools/roxy-stream/internal/app/queue"
	"github.com/roxytools/roxy-stream/internal/app/votes"
	"github.com/roxytools/roxy-stream/internal/domain/track"
)

// Resolver maps a free-text query to a playable track.
// A nil track with a nil error means nothing matched.
type Resolver interface {
	SearchTrack(ctx context.Context, query string) (*track.Track, error)
}

// MediaControl is the privileged operator surface of the playback device.
type MediaControl interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	TransferPlayback(ctx context.Context, deviceID string) error
}

// Env is the capability set handed to every plugin handler. One immutable
// struct per dispatcher; handlers use exactly what they need.
type Env struct {
	Queue       *queue.Queue
	Ballot      *votes.Ballot
	Roster      *admission.Roster
	Ledger      *admission.Ledger
	Player      MediaControl
	Current     func() (track.Request, bool)
	LastPlayed  func() (track.Request, bool)
	PlayedCount func() int
	Advance     func() error // skip the current song
	Repeat      func() error // replay the current song
	SetDevice   func(deviceID string)
	Message     func(code string) string
	Modules     func() []*Module
	StartedAt   time.Time
}

// Handler handles one chat verb. It returns a user-displayable string or "".
type Handler func(ctx context.Context, user, platform string, args []string, env *Env) (string, error)

// Module is a named set of verb handlers.
type Module struct {
	Name     string
	Commands map[string]Handler
}

// Dispatcher parses prefixed chat messages and routes them.
type Dispatcher struct {
	prefix   string
	dedup    *admission.DedupWindow
	policy   *admission.Policy
	resolver Resolver
	queue    *queue.Queue
	env      *Env
	modules  []*Module
	kick     func() // wake the scheduler after a push while idle
	notify   func() // broadcast a state snapshot
	playing  func() bool
}

// NewDispatcher creates a dispatcher for the built-in request pipeline.
func NewDispatcher(
	prefix string,
	dedup *admission.DedupWindow,
	policy *admission.Policy,
	resolver Resolver,
	q *queue.Queue,
	env *Env,
	kick func(),
	notify func(),
	playing func() bool,
) *Dispatcher {
	d := &Dispatcher{
		prefix:   prefix,
		dedup:    dedup,
		policy:   policy,
		resolver: resolver,
		queue:    q,
		env:      env,
		kick:     kick,
		notify:   notify,
		playing:  playing,
	}
	env.Modules = d.Modules
	return d
}

// Register appends a plugin module. Lookup order is registration order.
func (d *Dispatcher) Register(m *Module) {
	d.modules = append(d.modules, m)
	zlog.Info().Str("module", m.Name).Int("commands", len(m.Commands)).Msg("command module registered")
}

// Modules returns the registered modules in registration order.
func (d *Dispatcher) Modules() []*Module {
	return d.modules
}

// Dispatch handles one chat message. Messages without the command prefix are
// ignored. Handler failures are isolated and logged; they never abort the
// dispatch of future commands.
func (d *Dispatcher) Dispatch(ctx context.Context, msg chat.Message) {
	if !strings.HasPrefix(msg.Text, d.prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(msg.Text, d.prefix))
	if len(fields) == 0 {
		return
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	if verb == "request" {
		// The request verb rejoins its arguments into one free-text query.
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			zlog.Info().Str("platform", msg.Platform).Str("user", msg.User).Msg("request without query ignored")
			return
		}
		d.handleRequest(ctx, msg.Platform, msg.User, query)
		return
	}

	for _, m := range d.modules {
		h, ok := m.Commands[verb]
		if !ok {
			continue
		}

		out, err := h(ctx, msg.User, msg.Platform, args, d.env)
		if err != nil {
			zlog.Error().Err(err).Str("module", m.Name).Str("verb", verb).Msg("command handler failed")
		} else if out != "" {
			zlog.Info().Str("verb", verb).Msg(out)
		}
		d.notify()
		return
	}

	zlog.Info().Str("platform", msg.Platform).Str("verb", verb).Msg("unknown command")
}

// handleRequest runs the admission pipeline: dedup, policy, resolution,
// enqueue. The user's quota is consumed only after resolution succeeds.
func (d *Dispatcher) handleRequest(ctx context.Context, platform, user, query string) {
	if !d.dedup.ShouldAdmit(platform, user, query) {
		zlog.Info().Str("platform", platform).Str("user", user).Str("query", query).Msg("duplicate request ignored")
		return
	}

	zlog.Info().Str("platform", platform).Str("user", user).Str("query", query).Msg("request received")

	req := admission.Request{Platform: platform, User: user}
	if result := d.policy.Admit(ctx, req); !result.Accepted {
		zlog.Info().
			Str("platform", platform).
			Str("user", user).
			Str("code", result.Code).
			Msg(d.env.Message(result.Code))
		return
	}

	resolved, err := d.resolver.SearchTrack(ctx, query)
	if err != nil || resolved == nil {
		// Fail-soft: the request is dropped and the quota untouched; the
		// user may simply resubmit.
		if err != nil {
			zlog.Error().Err(err).Str("query", query).Msg("track resolution failed")
		} else {
			zlog.Info().Str("user", user).Str("query", query).Msg(d.env.Message("track_not_found"))
		}
		return
	}

	d.policy.Commit(req)
	d.queue.Push(track.NewRequest(*resolved, platform, user))

	zlog.Info().
		Str("user", user).
		Str("track", resolved.Name).
		Str("artists", resolved.ArtistLine()).
		Msg(d.env.Message("success"))

	if d.playing() {
		d.notify()
	} else {
		d.kick()
	}
}
