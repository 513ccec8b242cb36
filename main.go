package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	format string
	out    io.Writer
	errOut io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(GetExitCode(err))
}

// NewRootCommand builds the command tree. Output goes to out, diagnostics and logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "proxy-contract-tests",
		Short: "Contract tests and examples for a local LLM proxy",
		Long: `proxy-contract-tests exercises a locally running LLM proxy over HTTP.

It checks the agent-run API (/run, /run_sse, sessions), the Assistants API
(/v1/threads...) and, when declared, OpenAI chat completions through the
official SDK. It also ships runnable client examples and an in-process
mock proxy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case formatText, formatJSON:
				return nil
			default:
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be %q or %q", opts.format, formatText, formatJSON))
			}
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&opts.format, "format", formatText, "output format (text|json)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newExampleCommand(opts))
	cmd.AddCommand(newMockProxyCommand(opts))

	return cmd
}
