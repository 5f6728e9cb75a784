package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovida/shopcore/internal/cache"
	"github.com/ovida/shopcore/internal/config"
	"github.com/ovida/shopcore/internal/crypto"
	"github.com/ovida/shopcore/internal/handlers"
	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	syncsvc "github.com/ovida/shopcore/internal/sync"
	"github.com/ovida/shopcore/internal/sync/queue"
	"github.com/ovida/shopcore/internal/sync/reconcile"
	"github.com/ovida/shopcore/internal/sync/replay"
	"github.com/ovida/shopcore/internal/sync/scheduler"
	"github.com/ovida/shopcore/internal/transport"
)

// NewServeCommand creates the serve command: run the engine and its
// localhost API until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync engine and localhost API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts)
		},
	}
	return cmd
}

func runServe(opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	level := logging.Level(cfg.LogLevel)
	if opts.Verbose {
		level = logging.LevelDebug
	}
	logging.Init(os.Stdout, level)

	machineID := cfg.MachineID
	if machineID == "" {
		machineID, _ = os.Hostname()
	}
	store, err := localstore.Open(cfg.DataDir, crypto.DeriveKey(machineID))
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer store.Close()

	hub := cache.NewHub()
	defer hub.Close()
	broadcastCache := cache.NewBroadcastCache(hub, store)

	client := transport.NewClient(transport.Config{
		BaseURL:   cfg.API.BaseURL,
		AuthToken: cfg.API.AuthToken,
		Timeout:   cfg.API.Timeout.Std(),
	})

	q := queue.New(store)
	history := reconcile.NewHistory(store)
	sched := scheduler.New(scheduler.Params{
		Queue:    q,
		Replayer: replay.New(client),
		Reconcilers: []scheduler.Reconciler{
			reconcile.NewCartReconciler(store, client, broadcastCache),
			reconcile.NewFavoritesReconciler(store, client, broadcastCache),
		},
		Cleaner: reconcile.NewCleaner(history, broadcastCache),
		Oracle:  transport.NewProbe(cfg.API.BaseURL),
		Events:  hub,
		Config: &scheduler.Config{
			SyncInterval:     cfg.Sync.Interval.Std(),
			RetentionHorizon: cfg.Sync.RetentionHorizon.Std(),
			RunTimeout:       cfg.Sync.RunTimeout.Std(),
		},
	})
	svc := syncsvc.NewService(store, q, sched)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.Start(ctx)
	defer svc.Close()

	// Refresh on startup the same way an app-foreground transition would.
	svc.ScheduleImmediateSync(ctx)

	syncHandler := handlers.NewSyncHandler(svc)
	localHandler := handlers.NewLocalStateHandler(store, broadcastCache, history, svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync/actions", syncHandler.Enqueue)
	mux.HandleFunc("POST /sync/now", syncHandler.SyncNow)
	mux.HandleFunc("GET /sync/status", syncHandler.Status)
	mux.HandleFunc("PUT /local/cart", localHandler.PutCart)
	mux.HandleFunc("PUT /local/favorites", localHandler.PutFavorites)
	mux.HandleFunc("POST /local/history", localHandler.AddHistory)
	mux.HandleFunc("POST /cache/touch", localHandler.CacheTouch)
	mux.HandleFunc("DELETE /local", localHandler.ClearAll)
	mux.HandleFunc("GET /ws", hub.ServeWS)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("shopcore listening", map[string]interface{}{
			"component": "cli.serve",
			"addr":      cfg.ListenAddr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Flush pending work before suspension, then shut down.
	svc.ScheduleImmediateSync(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
