// Package cmd parse args to configure application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"studycall/studycall"
)

// Run starts the application.
func Run() {
	config, debug, err := SetupConfig(os.Stderr, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogger(os.Stderr, debug)

	client, err := studycall.New(config)
	if err != nil {
		log.Error().Err(err).Msg("failed to create client")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := client.Start(ctx); err != nil {
		log.Error().Err(err).Msg("client stopped with error")
		os.Exit(1)
	}
}

func setupLogger(w io.Writer, debug bool) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// SetupConfig sets up and returns the configuration and whether debug logging
// is on.
func SetupConfig(w io.Writer, args []string) (studycall.Config, bool, error) {
	config, debug, err := Parse(w, args)
	if err != nil {
		return config, debug, err
	}
	if err = config.Validate(); err != nil {
		return config, debug, err
	}
	return config, debug, nil
}

// Parse parses the command line arguments.
func Parse(w io.Writer, args []string) (studycall.Config, bool, error) {
	con := studycall.DefaultConfig()
	var debug bool

	fs := flag.NewFlagSet("studycall", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.StringVar(&con.Signal.URL, "server", con.Signal.URL, "signaling websocket url")
	fs.StringVar(&con.Coordinator.Token, "token", "", "session token")
	fs.StringVar(&con.Coordinator.UserID, "user", "", "local user id")
	fs.DurationVar(&con.Signal.RequestTimeout, "request-timeout", con.Signal.RequestTimeout, "acknowledgement timeout of signaling requests")
	fs.DurationVar(&con.Coordinator.RingTimeout, "ring-timeout", con.Coordinator.RingTimeout, "how long a call rings before it is given up")
	fs.BoolVar(&con.Coordinator.EndWhenAlone, "end-when-alone", con.Coordinator.EndWhenAlone, "end a group call when every other participant left")
	fs.Func("stun", "comma separated ice server urls", func(v string) error {
		con.Peer.ICEServers = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				con.Peer.ICEServers = append(con.Peer.ICEServers, s)
			}
		}
		return nil
	})
	fs.StringVar(&con.Database.Path, "db", "", "sqlite database path, in memory when empty")
	fs.IntVar(&con.Metrics.Port, "metrics-port", con.Metrics.Port, "metrics port, 0 disables it")
	fs.IntVar(&con.Control.Port, "control-port", con.Control.Port, "control api port, 0 disables it")
	fs.StringVar(&con.Control.Token, "control-token", "", "bearer token of the control api")
	fs.StringVar(&con.Audio.CueOut, "cue-out", "", "raw pcm file for call cues, - for stdout")
	fs.StringVar(&con.Audio.PlaybackDir, "playback-dir", "", "directory receiving remote audio as ogg files")
	fs.BoolVar(&con.Audio.Autoplay, "autoplay", false, "play remote audio without waiting for a gesture")
	fs.BoolVar(&debug, "debug", false, "debug mode")

	err := fs.Parse(args)
	if err != nil {
		return studycall.Config{}, false, fmt.Errorf("failed to parse args: %w", err)
	}

	if fs.NArg() != 0 {
		return studycall.Config{}, false, errors.New("some args are not parsed")
	}

	return con, debug, nil
}
