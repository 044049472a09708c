package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/repot-ai/internal/ai"
	"github.com/thywilljoshua/repot-ai/internal/config"
	"github.com/thywilljoshua/repot-ai/internal/logging"
	"github.com/thywilljoshua/repot-ai/internal/server"
	"github.com/thywilljoshua/repot-ai/internal/store"
	"github.com/thywilljoshua/repot-ai/internal/workspace"
)

func newGenerator(ctx context.Context, cfg *config.Config, log *slog.Logger) (ai.Generator, error) {
	gen, err := ai.New(ctx, cfg.AIOptions())
	if err != nil {
		return nil, fmt.Errorf("ai provider: %w", err)
	}
	log.Info("ai provider ready", "provider", cfg.AI.Provider, "model", cfg.AI.Model, "key", logging.RedactKey(cfg.AI.APIKey))
	return ai.WithTimeout(gen, cfg.AI.Timeout), nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver != "postgres" {
		return store.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
}

func serveCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and editor bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gen, err := newGenerator(ctx, cfg, log)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sessions := workspace.NewManager(gen, log)
			defer sessions.Close()

			srv := server.New(server.Options{
				Generator: gen,
				Store:     st,
				Uploads: &store.Uploads{
					Dir:     cfg.Server.UploadsDir,
					BaseURL: cfg.Server.PublicBaseURL,
				},
				Sessions:       sessions,
				TemplatesDir:   cfg.Server.TemplatesDir,
				MaxUploadBytes: cfg.MaxUploadBytes(),
				Log:            log,
			})
			httpSrv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config and REPOT_ADDR)")
	return cmd
}
