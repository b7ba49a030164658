package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferntrail/scrapbook/internal/auth"
	"github.com/ferntrail/scrapbook/internal/db"
	"github.com/ferntrail/scrapbook/internal/handlers"
	"github.com/ferntrail/scrapbook/internal/logging"
	"github.com/ferntrail/scrapbook/internal/media"
	"github.com/ferntrail/scrapbook/internal/sharing"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  "Run the scrapbook HTTP server. Pending schema migrations are applied at startup.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions) error {
	cfg := opts.Config
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewMigrator(database.DB, db.MigrationsFS()).Up(); err != nil {
		return err
	}

	repo := db.NewRepository(database.DB)
	store, err := media.NewStore(filepath.Join(cfg.DataDir, "media"))
	if err != nil {
		return err
	}
	api := handlers.New(cfg, repo,
		auth.NewService(repo),
		sharing.NewService(repo),
		media.NewValidator(cfg.MaxImageBytes),
		store,
	)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server listening", map[string]interface{}{"addr": cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
