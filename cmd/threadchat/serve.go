package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boat-builder/threadchat/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Addr = addr
			}

			gen, err := a.newGenerator()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, a.cfg.Addr, server.NewServer(gen, a.logger), a.logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides THREADCHAT_ADDR)")
	return cmd
}
