package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/quester-agent/internal/adapters/http"
	"github.com/PabloGalante/quester-agent/internal/app/tasks"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

const shutdownTimeout = 20 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	log := observability.Logger()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error("closing stores", "error", err)
		}
	}()

	janitor, err := tasks.NewJanitor(svc.tracker, cfg.Tasks.SweepSchedule, cfg.Tasks.Retention)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(svc.conv, svc.drafts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Quester API listening", "addr", srv.Addr, "mode", cfg.Mode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}
	}

	// Let in-flight draft runs land before the stores close.
	svc.conv.Wait()
	return nil
}
