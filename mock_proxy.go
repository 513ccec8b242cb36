package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lmproxy/proxy-contract-tests/logging"
	"github.com/lmproxy/proxy-contract-tests/mockproxy"
)

const mockProxyShutdownTimeout = 5 * time.Second

type mockProxyOptions struct {
	*rootOptions

	listen     string
	chunkDelay time.Duration
	logLevel   string
}

func newMockProxyCommand(root *rootOptions) *cobra.Command {
	opts := &mockProxyOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "mock-proxy",
		Short: "Serve a deterministic in-memory proxy",
		Long: `Serve a deterministic in-memory proxy until interrupted.

The mock answers the agent-run API, the Assistants API and chat completions
with canned replies (arithmetic, recall of earlier turns, agent-pattern
roles), so the test suite and the examples can run without a real model.
Logs go to stderr in the format chosen by --format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveMockProxy(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "127.0.0.1:3141", "address to listen on")
	cmd.Flags().DurationVar(&opts.chunkDelay, "chunk-delay", 0, "delay between streamed chunks")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	return cmd
}

func serveMockProxy(ctx context.Context, opts *mockProxyOptions) error {
	logger, err := logging.New(opts.logLevel, opts.format, opts.errOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}
	running, err := mockproxy.New(
		mockproxy.WithLogger(logger),
		mockproxy.WithChunkDelay(opts.chunkDelay),
	).Start(opts.listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start mock proxy", err)
	}
	fmt.Fprintf(opts.out, "Mock proxy listening at %s\n", running.URL)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), mockProxyShutdownTimeout)
	defer cancel()
	if err := running.Close(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "mock proxy did not shut down cleanly", err)
	}
	logger.Info("mock proxy stopped")
	return nil
}
