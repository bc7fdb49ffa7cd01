package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/PassForge/internal/api"
)

const (
	defaultServeAddr = "127.0.0.1:8787"
	shutdownTimeout  = 5 * time.Second
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the vault store over HTTP for other pf clients",
		Long: `Serve exposes the configured local store at ` + api.Path + ` so that clients
using the http backend can share it. Entries are already encrypted; the
endpoint itself is not authenticated, so keep it on a loopback address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cfg.Store.Backend == "http" {
				return usageErrorf("serve needs a local backend, not http")
			}
			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
			}
			defer st.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.New(st, log).Mux(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			log.Info("serving vault store", "addr", addr, "path", api.Path, "backend", cfg.Store.Backend)

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("listen: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "listen address")
	return cmd
}
