package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdictlabs/verdict/internal/infrastructure/httpapi"
	"github.com/verdictlabs/verdict/internal/infrastructure/wiring"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the decision pipeline over HTTP",
	Long: `Start an HTTP server exposing run submission, run retrieval, and
progress streaming over SSE and websocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		services, err := wiring.Build(cwd)
		if err != nil {
			return err
		}
		for _, w := range services.CorpusWarnings {
			fmt.Fprintf(os.Stderr, "corpus: dropped %v\n", w)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		server := httpapi.NewServer(serveAddr, services.Pipeline, services.Repo, services.Publisher, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()
		fmt.Printf("Listening on %s\n", serveAddr)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8321", "listen address")
	RootCmd.AddCommand(serveCmd)
}
