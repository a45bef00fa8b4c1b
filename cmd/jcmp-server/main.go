// Command jcmp-server runs the MIDI relay: a signaling and WebRTC
// negotiation endpoint in front of a jitter-buffered playback queue that
// drains onto a local MIDI device.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jcmp-relay/server/config"
	"github.com/jcmp-relay/server/server"
)

func main() {
	root := &cobra.Command{
		Use:   "jcmp-server",
		Short: "Relay WebSocket/WebRTC performance events to a local MIDI device",
		RunE:  run,
	}

	root.Flags().Int("port", 5000, "HTTP/WebSocket listen port")
	root.Flags().StringSlice("device-prefer", nil, "ordered substrings to match against MIDI output device names")
	root.Flags().Bool("debug", false, "enable verbose per-event logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

	app := server.New(cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx)
}
