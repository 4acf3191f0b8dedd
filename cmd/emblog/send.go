package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/emblog/log"
)

func newSendCmd(cfg *log.Config, stdout io.Writer) *cobra.Command {
	var (
		levelName string
		module    string
	)

	cmd := &cobra.Command{
		Use:   "send [flags] FORMAT [ARG ...]",
		Short: "Log one message locally and to the configured syslog collector",
		Long: `send formats FORMAT with the remaining arguments (passed as strings) and
logs the result at --level under --module. The local record honors
--log-level; the syslog copy is sent whenever --syslog-host is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			level, err := log.ParseLevel(levelName)
			if err != nil {
				return fmt.Errorf("%w: %w", log.ErrInvalidArgument, err)
			}

			sender := log.NewUDPSender()

			defer func() {
				_ = sender.Close()
			}()

			l, err := cfg.NewLogger(stdout, log.WithSender(sender))
			if err != nil {
				return err
			}

			fmtArgs := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				fmtArgs = append(fmtArgs, a)
			}

			l.Log(level, module, args[0], fmtArgs...)

			return nil
		},
	}

	cmd.Flags().StringVarP(&levelName, "level", "l", "info",
		fmt.Sprintf("message level, one of: %s", log.GetAllLevelStrings()))
	cmd.Flags().StringVarP(&module, "module", "m", "emblog", "module name shown in the record header")

	return cmd
}

// registerSendCompletions registers shell completions for the send flags.
func registerSendCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc("level",
		cobra.FixedCompletions(log.GetAllLevelStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering level completion: %w", err)
	}

	err = cmd.RegisterFlagCompletionFunc("module", cobra.NoFileCompletions)
	if err != nil {
		return fmt.Errorf("registering module completion: %w", err)
	}

	return nil
}
