package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/web"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web dashboard and JSON API",
		Long: `Start a local web server with a dashboard of follow-ups, action items and
high-priority mail, plus a JSON API over everything analyzed.

The server listens on 127.0.0.1 only. Prometheus metrics are served on
/metrics unless server.metrics is false.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config, 8080)")

	return cmd
}

func runServe(port int) error {
	e, err := setup()
	if err != nil {
		return err
	}
	if port > 0 {
		e.cfg.Server.Port = port
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := web.NewServer(e.cfg, store, e.newAnalyzer(), e.log)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			e.log.Warn().Err(err).Msg("shutdown did not complete cleanly")
		}
	}()

	fmt.Printf("InboxLens dashboard at http://localhost:%d\n", e.cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	return server.Start()
}
