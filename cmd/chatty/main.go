package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatty/internal/app"
	"github.com/vovakirdan/chatty/internal/client"
	"github.com/vovakirdan/chatty/internal/config"
	chatlog "github.com/vovakirdan/chatty/internal/log"
	"github.com/vovakirdan/chatty/internal/transport/ws"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var (
		configPath string
		overrides  config.Client
	)

	cmd := &cobra.Command{
		Use:           "chatty",
		Short:         "Terminal client for the chatty room server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.LoadClient(nil, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := chatlog.New(cfg.LogLevel, errOut)
			logger.Debug().Str("config", path).Str("url", cfg.ServerURL).Msg("starting client")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dial := func(ctx context.Context, url string) (client.Transport, error) {
				return ws.Dial(ctx, url, logger)
			}
			if err := app.New(cfg, dial, out, logger).Run(ctx, in); err != nil {
				fmt.Fprintf(errOut, "<Error> %v\n", err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config file")
	flags.StringVar(&overrides.ServerURL, "url", "", "server websocket url")
	flags.StringVarP(&overrides.Nickname, "nick", "n", "", "nickname to register with")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}
