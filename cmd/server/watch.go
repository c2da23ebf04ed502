package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"credbridge/internal/notify/client"
	"credbridge/internal/platform/logger"
)

var watchOpts struct {
	server       string
	sessionID    string
	maxAttempts  uint64
	maxInterval  time.Duration
	pollInterval time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a session's updates like a browser would",
	Long: `watch opens the session's push channel and prints every update. When the
channel cannot be reopened it falls back to polling the status endpoint until
the channel comes back.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchOpts.server, "server", "http://localhost:8080", "credbridge base URL")
	f.StringVar(&watchOpts.sessionID, "session", "", "session id to follow")
	f.Uint64Var(&watchOpts.maxAttempts, "max-attempts", client.DefaultMaxAttempts, "dial attempts before polling")
	f.DurationVar(&watchOpts.maxInterval, "max-backoff", client.DefaultMaxInterval, "longest wait between dials")
	f.DurationVar(&watchOpts.pollInterval, "poll-interval", client.DefaultPollInterval, "status poll interval while the channel is down")
	_ = watchCmd.MarkFlagRequired("session")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	log := logger.NewWithWriter(os.Stderr, "info", "text")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	w := client.New(
		client.NewHTTPTransport(watchOpts.server, watchOpts.sessionID, nil),
		client.WithLogger(log),
		client.WithBackoff(client.DefaultInitialInterval, watchOpts.maxInterval, watchOpts.maxAttempts),
		client.WithPolling(watchOpts.pollInterval, client.DefaultProbeInterval),
		client.WithStateListener(func(s client.State) {
			log.Info("watcher state", "state", s.String())
		}),
	)
	err := w.Run(ctx, func(u client.Update) {
		fmt.Fprintf(out, "%s\t%s\n", u.Source, u.Payload)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
