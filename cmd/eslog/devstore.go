package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coffersTech/esrestlog/internal/docstore"
)

// newDevstoreCommand constructs the `devstore` command: an in-memory
// document store speaking the subset of the REST API the client uses.
func newDevstoreCommand() *cobra.Command {
	devCmd := &cobra.Command{
		Use:   "devstore",
		Short: "Run an in-memory document store for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			dataFile, _ := cmd.Flags().GetString("data")
			interval, _ := cmd.Flags().GetDuration("snapshot-interval")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			store := docstore.NewStore()
			if dataFile != "" {
				if err := store.LoadFile(dataFile); err != nil {
					return err
				}
				log.Info("snapshot loaded", "file", dataFile, "indices", len(store.ListIndices("")))
			}

			srv := docstore.NewServer(store, log)
			go func() {
				log.Info("listening", "addr", addr)
				if err := srv.Start(addr); err != nil {
					log.Error("server stopped", "error", err)
				}
			}()

			done := make(chan struct{})
			if dataFile != "" && interval > 0 {
				go func() {
					ticker := time.NewTicker(interval)
					defer ticker.Stop()
					for {
						select {
						case <-ticker.C:
							if err := store.SaveFile(dataFile); err != nil {
								log.Error("periodic snapshot failed", "file", dataFile, "error", err)
							}
						case <-done:
							return
						}
					}
				}()
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			log.Info("shutting down", "signal", sig.String())
			close(done)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error("server shutdown", "error", err)
			}

			if dataFile != "" {
				if err := store.SaveFile(dataFile); err != nil {
					return err
				}
				log.Info("snapshot saved", "file", dataFile)
			}
			return nil
		},
	}
	devCmd.Flags().String("addr", ":9200", "Listen address")
	devCmd.Flags().String("data", "", "Snapshot file loaded at start and saved on shutdown")
	devCmd.Flags().Duration("snapshot-interval", time.Minute, "Also save the snapshot this often (0 = only on shutdown)")
	return devCmd
}
