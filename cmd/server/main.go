// Package main provides the bot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/roxytools/roxy-stream/internal/app/admission"
	"github.com/roxytools/roxy-stream/internal/app/broadcast"
	"github.com/roxytools/roxy-stream/internal/app/chat"
	"github.com/roxytools/roxy-stream/internal/app/command"
	"github.com/roxytools/roxy-stream/internal/app/queue"
	"github.com/roxytools/roxy-stream/internal/app/scheduler"
	"github.com/roxytools/roxy-stream/internal/app/votes"
	"github.com/roxytools/roxy-stream/internal/domain/track"
	"github.com/roxytools/roxy-stream/internal/infra/config"
	"github.com/roxytools/roxy-stream/internal/infra/logger"
	"github.com/roxytools/roxy-stream/internal/infra/spotify"
)

var (
	app        = kingpin.New("roxy-stream", "Multi-platform song request bot")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-guards command
	listGuardsCmd = app.Command("list-guards", "List available admission guards and exit")
)

func init() {
	// start command (default)
	app.Command("start", "Start the bot (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	parsed := kingpin.MustParse(app.Parse(os.Args[1:]))

	if parsed == listGuardsCmd.FullCommand() {
		printGuards()
		return
	}

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Missing credentials are a fatal precondition; refuse to start.
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main bot logic. Using a separate function ensures defer
// statements run even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spotifyClient, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	// Shared state: roster, ledger, queue, ballot.
	roster := admission.NewRoster(cfg.Admins, cfg.Banned)
	ledger := admission.NewLedger()
	q := queue.New(queue.NewStore(cfg.Queue.File))
	ballot := votes.NewBallot(cfg.Votes.Threshold)

	if n := q.Len(); n > 0 {
		zlog.Info().Int("requests", n).Msg("restored persisted queue")
	}

	policy := admission.NewPolicy(roster, ledger)
	if err := setupGuards(cfg, policy, roster, ledger); err != nil {
		return fmt.Errorf("invalid guard config: %w", err)
	}

	sched := scheduler.New(q, ballot, spotifyClient, scheduler.Config{
		EndBuffer:        time.Duration(cfg.Playback.EndBufferMs) * time.Millisecond,
		FallbackDuration: time.Duration(cfg.Playback.FallbackDurationSec) * time.Second,
		RetryDelay:       time.Duration(cfg.Playback.RetryDelayMs) * time.Millisecond,
	})
	defer sched.Close()

	hub := broadcast.NewHub()
	defer hub.Close()

	snapshot := func() broadcast.Snapshot {
		var current *track.Request
		if c, ok := sched.Current(); ok {
			current = &c
		}
		return broadcast.Snapshot{
			CurrentSong: current,
			Queue:       q.Items(),
			Votes:       ballot.Count(),
		}
	}
	notify := func() { hub.Broadcast(snapshot()) }

	env := &command.Env{
		Queue:       q,
		Ballot:      ballot,
		Roster:      roster,
		Ledger:      ledger,
		Player:      spotifyClient,
		Current:     sched.Current,
		LastPlayed:  sched.LastPlayed,
		PlayedCount: sched.PlayedCount,
		Advance:     sched.Skip,
		Repeat:      sched.Repeat,
		SetDevice:   sched.SetDevice,
		Message:     cfg.GetMessage,
		StartedAt:   time.Now(),
	}

	dedup := admission.NewDedupWindow(time.Duration(cfg.Chat.DedupWindowSec) * time.Second)
	dispatcher := command.NewDispatcher(
		cfg.Chat.Prefix,
		dedup,
		policy,
		spotifyClient,
		q,
		env,
		sched.Kick,
		notify,
		func() bool { _, ok := sched.Current(); return ok },
	)
	dispatcher.Register(command.MusicModule())
	dispatcher.Register(command.AdminModule())
	dispatcher.Register(command.InfoModule())

	// Broadcast a snapshot on every scheduler transition.
	go func() {
		for range sched.Events() {
			notify()
		}
	}()

	// Watchdog: nudge the scheduler if it is idle with pending work.
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Playback.WatchdogIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sched.Kick()
			}
		}
	}()

	// Console chat source.
	if cfg.Chat.ConsoleEnabled {
		console := chat.NewConsoleSource(cfg.Chat.ConsolePlatform, os.Stdin)
		go func() {
			if err := console.Listen(ctx, func(msg chat.Message) {
				dispatcher.Dispatch(ctx, msg)
			}); err != nil && ctx.Err() == nil {
				zlog.Error().Err(err).Msg("console source stopped")
			}
		}()
	}

	// Viewer snapshot feed.
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting viewer server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Resume pending work from a previous run.
	sched.Kick()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// setupGuards builds the admission chain: ban, cap, cooldown.
// A guard can be switched off explicitly in config; otherwise all run.
func setupGuards(cfg *config.Config, policy *admission.Policy, roster *admission.Roster, ledger *admission.Ledger) error {
	enabled := func(name string) bool {
		g, ok := cfg.Guards[name]
		return !ok || g.Enabled
	}

	if enabled("ban_guard") {
		policy.Add(admission.NewBanGuard(roster))
	}

	if enabled("cap_guard") {
		g := admission.NewCapGuard(ledger)
		if err := g.ValidateConfig(cfg.GuardSettings("cap_guard")); err != nil {
			return fmt.Errorf("guard %s: %w", g.Name(), err)
		}
		policy.Add(g)
	}

	if enabled("cooldown_guard") {
		g := admission.NewCooldownGuard(ledger)
		if err := g.ValidateConfig(cfg.GuardSettings("cooldown_guard")); err != nil {
			return fmt.Errorf("guard %s: %w", g.Name(), err)
		}
		policy.Add(g)
	}

	return nil
}

// printGuards prints available admission guards.
func printGuards() {
	fmt.Println("Available Guards:")
	for _, factory := range admission.GetRegistered() {
		g := factory()
		codes := strings.Join(g.ReturnCodes(), ", ")
		fmt.Printf("  %-20s - %s [codes: %s]\n", g.Name(), g.Description(), codes)
	}
}
