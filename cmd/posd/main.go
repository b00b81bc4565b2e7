package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rdelrosario/sari-pos/api/routes"
	"github.com/rdelrosario/sari-pos/internal/baskets"
	"github.com/rdelrosario/sari-pos/internal/cartmirror"
	"github.com/rdelrosario/sari-pos/internal/catalog"
	"github.com/rdelrosario/sari-pos/internal/compose"
	"github.com/rdelrosario/sari-pos/internal/connectivity"
	"github.com/rdelrosario/sari-pos/internal/pos"
	"github.com/rdelrosario/sari-pos/internal/remote/cartchannel"
	"github.com/rdelrosario/sari-pos/internal/remote/pgstore"
	"github.com/rdelrosario/sari-pos/internal/stock"
	"github.com/rdelrosario/sari-pos/internal/syncer"
	"github.com/rdelrosario/sari-pos/internal/txqueue"
	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/db"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/metrics"
	"github.com/rdelrosario/sari-pos/pkg/migrate"
	"github.com/rdelrosario/sari-pos/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "posd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "posd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.RemoteDB.Enabled() {
		logg.Error(context.Background(), "remote store DSN not configured", nil)
		os.Exit(1)
	}

	localClient, err := db.NewLocal(context.Background(), cfg.LocalStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open local store", err)
		os.Exit(1)
	}
	defer func() {
		if err := localClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing local store", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, localClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// The remote store may be unreachable at boot; the open is lazy and the
	// sync engine retries, so a dead link is not fatal here.
	remoteClient, err := db.NewRemote(context.Background(), cfg.RemoteDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap remote store", err)
		os.Exit(1)
	}
	defer func() {
		if err := remoteClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing remote store", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	catalogRepo := catalog.NewRepository(localClient.DB())
	basketRepo := baskets.NewRepository(localClient.DB())

	queue, err := txqueue.NewQueue(localClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction queue", err)
		os.Exit(1)
	}

	txnStore, err := pgstore.NewTransactionStore(remoteClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create remote transaction store", err)
		os.Exit(1)
	}
	basketStore, err := pgstore.NewBasketStore(remoteClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create remote basket store", err)
		os.Exit(1)
	}
	stockStore, err := pgstore.NewStockStore(remoteClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create remote stock store", err)
		os.Exit(1)
	}

	engine, err := syncer.NewEngine(queue, txnStore, basketStore, basketRepo, syncMetrics, logg, cfg.Sync)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync engine", err)
		os.Exit(1)
	}

	// Sales queued before the last shutdown are still pending; seed the
	// gauge so the first scrape reflects them.
	if pending, err := queue.Count(context.Background()); err == nil {
		syncMetrics.SetPending(int(pending))
	}

	ledger, err := stock.NewReconciler(catalogRepo, stockStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock reconciler", err)
		os.Exit(1)
	}

	channel, err := cartchannel.New(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart channel", err)
		os.Exit(1)
	}
	mirror, err := cartmirror.NewMirror(channel, cfg.App.StaffID, cfg.Mirror, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart mirror", err)
		os.Exit(1)
	}

	oracle := connectivity.NewRedisProbe(redisClient, cfg.Redis.DialTimeout)
	composer := compose.NewComposer(cfg.VAT)

	posService, err := pos.NewService(
		mirror,
		catalogRepo,
		basketRepo,
		ledger,
		queue,
		engine,
		oracle,
		composer,
		logg,
		cfg.App.DeviceID,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pos service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mirror.Start(runCtx); err != nil {
		logg.Error(runCtx, "failed to start cart mirror", err)
		os.Exit(1)
	}
	defer mirror.Stop()

	watcher := connectivity.NewWatcher(oracle, cfg.Sync.PollInterval, func(ctx context.Context) {
		if _, err := engine.SyncAll(ctx); err != nil {
			logg.Error(ctx, "background sync pass failed", err)
		}
	}, logg)
	go watcher.Run(runCtx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"device": cfg.App.DeviceID,
		"staff":  cfg.App.StaffID,
	})
	logg.Info(ctx, "starting pos server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			LocalDB:       localClient,
			Redis:         redisClient,
			POS:           posService,
			Baskets:       basketRepo,
			Catalog:       catalogRepo,
			RemoteCatalog: stockStore,
			Transactions:  queue,
			Metrics:       registry,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
		logg.Info(ctx, "pos server stopped")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "pos server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}
