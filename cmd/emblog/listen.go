package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	clog "charm.land/log/v2"

	"go.jacobcolvin.com/emblog/collector"
	"go.jacobcolvin.com/emblog/log"
)

// ErrNotTerminal indicates the TUI was requested without a terminal.
var ErrNotTerminal = errors.New("stdout is not a terminal")

func newListenCmd(cfg *log.Config, stdout io.Writer, diag *clog.Logger) *cobra.Command {
	var (
		addr string
		tui  bool
	)

	cmd := &cobra.Command{
		Use:   "listen [flags]",
		Short: "Collect syslog datagrams and print them as local records",
		Long: `listen receives the UDP syslog datagrams mirrored by devices and prints each
one as a "[LEVEL][origin/module] message" record, filtered by --log-level.
When --syslog-host is set the records are relayed to that collector too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if tui {
				return runTUI(ctx, cfg, addr)
			}

			sender := log.NewUDPSender()

			defer func() {
				_ = sender.Close()
			}()

			out, err := cfg.NewLogger(stdout, log.WithSender(sender))
			if err != nil {
				return err
			}

			c := collector.New(out, collector.WithDiagnostics(diag))

			err = c.ListenAndServe(ctx, addr)
			if err != nil {
				return err
			}

			stats := c.Stats()
			diag.Info("collector stopped", "received", stats.Received, "malformed", stats.Malformed)

			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", fmt.Sprintf(":%d", log.DefaultSyslogPort),
		"UDP address to listen on")
	cmd.Flags().BoolVar(&tui, "tui", false, "show received records in a full-screen viewer")

	return cmd
}

// registerListenCompletions registers shell completions for the listen flags.
func registerListenCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc("addr", cobra.NoFileCompletions)
	if err != nil {
		return fmt.Errorf("registering addr completion: %w", err)
	}

	return nil
}

func runTUI(ctx context.Context, cfg *log.Config, addr string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // File descriptors fit in int.
		return fmt.Errorf("--tui: %w", ErrNotTerminal)
	}

	pub := log.NewPublisher(log.WithBufferSize(256))

	defer func() {
		_ = pub.Close()
	}()

	sub := pub.Subscribe()
	defer sub.Close()

	sender := log.NewUDPSender()

	defer func() {
		_ = sender.Close()
	}()

	out, err := cfg.NewLogger(pub, log.WithSender(sender), log.WithColor(true), log.WithLineEnding(log.LF))
	if err != nil {
		return err
	}

	c := collector.New(out)

	return runAlongside(ctx,
		func(ctx context.Context) error { return c.ListenAndServe(ctx, addr) },
		func(ctx context.Context) error { return runViewer(ctx, sub, addr) },
	)
}

// runAlongside runs serve in the background while view runs in the
// foreground. Whichever returns first stops the other: a serve failure
// cancels the context given to view, and view returning cancels serve.
func runAlongside(ctx context.Context, serve, view func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	viewCtx, stopView := context.WithCancel(ctx)
	defer stopView()

	errCh := make(chan error, 1)

	go func() {
		errCh <- serve(ctx)

		stopView()
	}()

	viewErr := view(viewCtx)

	cancel()

	return errors.Join(viewErr, <-errCh)
}
