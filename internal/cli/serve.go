package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-crm-backend/internal/columns"
	"github.com/tbourn/go-crm-backend/internal/feed"
	httpapi "github.com/tbourn/go-crm-backend/internal/http"
	"github.com/tbourn/go-crm-backend/internal/observability"
	"github.com/tbourn/go-crm-backend/internal/repo"
)

const purgeEvery = time.Hour

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	hub := feed.NewHub(ctx, repo.NewStores(db).Notifications, feed.Options{
		Interval: cfg.Notify.PollInterval,
		Limit:    cfg.Notify.FetchLimit,
	}, cfg.Notify.SessionIdle)
	go hub.Run(ctx)

	prefs, err := columns.NewFileStore(cfg.PrefsDir)
	if err != nil {
		return err
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:            db,
		Notifications: hub,
		Columns:       columns.NewManager(prefs),
	}, cfg)

	go purgeLoop(ctx, repo.NewLedger(db, cfg.IdempotencyTTL))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	hub.Close()
	return nil
}

// purgeLoop drops expired idempotency records until ctx is done.
func purgeLoop(ctx context.Context, ledger *repo.Ledger) {
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := ledger.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
			}
		}
	}
}
