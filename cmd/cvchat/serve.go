package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xhad/cvchat/server"
)

type serveCommander struct {
	flags *rootFlags
	addr  string
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmder := &serveCommander{flags: flags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	cfg, logger, err := c.flags.load()
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(svc, server.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DefaultTopK:    cfg.Retrieval.TopK,
	}, logger.WithPrefix("http"))

	return srv.ListenAndServe(ctx)
}
