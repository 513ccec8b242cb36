package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/config"
	"github.com/lmproxy/proxy-contract-tests/examples"
	"github.com/lmproxy/proxy-contract-tests/logging"
)

type exampleOptions struct {
	*rootOptions

	url        string
	configPath string
}

func newExampleCommand(root *rootOptions) *cobra.Command {
	opts := &exampleOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "example <name> [image...]",
		Short: "Run a client example against the proxy",
		Long: `Run a client example against the proxy and print the exchange.

Available examples:
` + examples.Describe() + `
Exit codes:
  0  The example completed
  1  A call to the proxy failed
  2  Unknown example or wrong arguments`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithEnvOverrides(opts.configPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			if cmd.Flags().Changed("url") {
				cfg.Proxy.BaseURL = opts.url
			}
			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, opts.errOut)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid logging configuration", err)
			}
			c := client.New(cfg.Proxy.BaseURL,
				client.WithTimeout(cfg.Proxy.RequestTimeout),
				client.WithLogger(logging.FromSlog(logger, slog.LevelDebug)),
			)

			err = examples.Run(cmd.Context(), args[0], cfg, c, args[1:], opts.out)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, examples.ErrUnknownExample), errors.Is(err, examples.ErrBadArguments):
				return WrapExitError(ExitCommandError, "", err)
			default:
				return WrapExitError(ExitFailure, "example failed", err)
			}
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "proxy base URL (default "+config.DefaultBaseURL+")")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")

	return cmd
}
