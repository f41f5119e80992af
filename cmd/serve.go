package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the REST API for uploading documents, listing and deleting them, querying across them and identifying themes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAllOrigins,
		}, server.Deps{
			Research:  a.research,
			Documents: a.store,
			Ingest:    a.ingest,
			Activity:  a.activity,
			Logger:    a.logger,
		})

		go func() {
			<-ctx.Done()
			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("shutdown failed", "error", err)
			}
		}()

		count, _ := a.index.Count(ctx)
		a.logger.Info("docsynth server starting",
			"version", Version,
			"port", port,
			"database", a.db.Path(),
			"vector_store", a.cfg.VectorStore.Type,
			"chunks_indexed", count,
		)

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
