// Command sessionkit-probe drives a full session lifecycle against a live
// API: probe, login, optional two-factor verification, forced refresh, and
// logout. It is an operational smoke tool, not part of the library.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Litwebs/sessionkit"
	"github.com/rs/zerolog"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "", "API base URL (required)")
		email    = flag.String("email", "", "login email (required)")
		password = flag.String("password", "", "login password; read from stdin when empty")
		remember = flag.Bool("remember", false, "request a long-lived session")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall run timeout")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *baseURL == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "base-url and email are required")
		os.Exit(2)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	pass := *password
	if pass == "" {
		var err error
		if pass, err = prompt("password: "); err != nil {
			log.Fatal().Err(err).Msg("reading password")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	manager, err := sessionkit.New().
		WithBaseURL(*baseURL).
		WithLogger(log).
		WithMetricsEnabled(true).
		WithSessionExpiredHook(func() {
			log.Warn().Msg("session expired signal fired")
		}).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msg("building session manager")
	}

	probe, err := manager.CheckAuthentication(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("initial probe failed")
	}
	log.Info().Stringer("state", probe.State).Msg("initial probe")

	probe, err = manager.Login(ctx, *email, pass, *remember)
	if err != nil {
		log.Fatal().Err(err).Str("message", manager.Snapshot().Error).Msg("login rejected")
	}

	if probe.State == sessionkit.StatePendingTwoFactor {
		code, perr := prompt("two-factor code: ")
		if perr != nil {
			log.Fatal().Err(perr).Msg("reading code")
		}
		if probe, err = manager.Verify2FA(ctx, code); err != nil {
			log.Fatal().Err(err).Msg("verification rejected")
		}
	}

	if probe.User == nil {
		log.Fatal().Stringer("state", probe.State).Msg("login did not reach authenticated")
	}
	log.Info().
		Str("user", probe.User.Identifier()).
		Str("email", probe.User.Email).
		Str("role", probe.User.Role.Name).
		Msg("authenticated")

	if probe, err = manager.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("forced refresh failed")
	} else {
		log.Info().Stringer("state", probe.State).Msg("refresh + re-probe")
	}

	manager.Logout(ctx)
	log.Info().Stringer("state", manager.State()).Msg("logged out")

	snap := manager.MetricsSnapshot()
	log.Info().
		Uint64("refresh_attempts", snap.Counters[sessionkit.MetricRefreshAttempt]).
		Uint64("replays", snap.Counters[sessionkit.MetricRequestReplayed]).
		Msg("pipeline counters")
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
