package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/council"
	"github.com/dusk-indust/council/internal/httpapi"
	"github.com/dusk-indust/council/internal/metrics"
	"github.com/dusk-indust/council/internal/openrouter"
	"github.com/dusk-indust/council/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the council HTTP server",
	Long: `Starts the council pipeline server, exposing conversation management and
SSE streaming endpoints over HTTP. Requires OPENROUTER_API_KEY in the
environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		dataDir, _ := cmd.Flags().GetString("data")
		configDir, _ := cmd.Flags().GetString("config")
		log := newLogger(cmd)

		cat, err := catalog.Load(configDir)
		if err != nil {
			fmt.Printf("Error loading model catalog: %v\n", err)
			os.Exit(1)
		}

		st, err := store.Open(filepath.Join(dataDir, "conversations.db"))
		if err != nil {
			fmt.Printf("Error opening conversation store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		reg := prometheus.NewRegistry()
		met := metrics.New(reg)

		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			log.Warn("OPENROUTER_API_KEY is not set, model calls will fail")
		}
		client := openrouter.NewHTTPClient(apiKey, cat,
			openrouter.WithMetrics(met),
			openrouter.WithLogger(log),
		)

		seq := council.NewSequencer(st, client, cat,
			council.WithMetrics(met),
			council.WithLogger(log),
		)

		api := httpapi.NewServer(st, seq, cat,
			httpapi.WithLogger(log),
			httpapi.WithGatherer(reg),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: api.Router(),
		}

		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting council server on %s\n", srv.Addr)
			fmt.Printf("Conversation store: %s\n", filepath.Join(dataDir, "conversations.db"))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// In-flight pipeline cycles keep committing to the store during
			// the grace period; anything still running after it is abandoned
			// mid-stage and resumable from the last committed boundary.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete: %v\n", err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Council server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8000", "Port to listen on")
}
