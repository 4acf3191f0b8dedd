// Command emblog sends leveled log messages the way an emblog device does
// and collects the syslog datagrams such devices mirror over UDP.
//
// # Usage
//
//	emblog send [flags] FORMAT [ARG ...]
//	emblog listen [--addr :514] [--tui]
//	emblog schema
//	emblog version
//
// # Configuration
//
// Logging flags (--log-level, --log-color, --log-line-ending,
// --syslog-host, --syslog-port, --syslog-origin) apply to every
// subcommand. --log-config loads the same settings from a YAML, JSON, or
// JSON5 file; flags given on the command line override the file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	clog "charm.land/log/v2"

	"go.jacobcolvin.com/emblog/log"
	"go.jacobcolvin.com/emblog/version"
)

func main() {
	err := newRootCmd(os.Stdout, os.Stderr).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := log.NewConfig()

	diag := clog.NewWithOptions(stderr, clog.Options{
		ReportTimestamp: true,
		Prefix:          "emblog",
	})

	rootCmd := &cobra.Command{
		Use:   "emblog",
		Short: "Send and collect leveled, syslog-mirrored log messages",
		Long: `emblog writes color-framed log records in the "[LEVEL][module] message"
format used by embedded devices, mirrors them to a syslog collector over UDP,
and can act as that collector.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfigFile(cmd, cfg)
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	cfg.RegisterFlags(rootCmd.PersistentFlags())

	sendCmd := newSendCmd(cfg, stdout)
	listenCmd := newListenCmd(cfg, stdout, diag)

	rootCmd.AddCommand(
		sendCmd,
		listenCmd,
		newSchemaCmd(stdout),
		newVersionCmd(stdout),
	)

	completionErr := errors.Join(
		cfg.RegisterCompletions(rootCmd),
		registerSendCompletions(sendCmd),
		registerListenCompletions(listenCmd),
	)
	if completionErr != nil {
		diag.Warn("register completions", "err", completionErr)
	}

	return rootCmd
}

func loadConfigFile(cmd *cobra.Command, cfg *log.Config) error {
	if cfg.File == "" {
		return nil
	}

	fc, err := log.LoadFile(cfg.File)
	if err != nil {
		return err
	}

	cfg.MergeFile(cmd.Flags(), fc)

	return nil
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(stdout, "emblog", version.String())
			if err != nil {
				return fmt.Errorf("write version: %w", err)
			}

			return nil
		},
	}
}
