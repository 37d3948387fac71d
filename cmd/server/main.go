package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/api"
	"github.com/jafarshop/dropsim/internal/cache"
	"github.com/jafarshop/dropsim/internal/config"
	"github.com/jafarshop/dropsim/internal/logger"
	"github.com/jafarshop/dropsim/internal/queue"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/repository/gormstore"
	"github.com/jafarshop/dropsim/internal/repository/memory"
	"github.com/jafarshop/dropsim/internal/service"
	"github.com/jafarshop/dropsim/internal/supplier"
	"github.com/jafarshop/dropsim/internal/supplierapi"
	"github.com/jafarshop/dropsim/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.Log.Level, cfg.Log.ToLoggerOptions())
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(cfg.Database, log)
	if err != nil {
		return err
	}

	if cfg.Automation.SeedDemoData {
		if err := supplier.Seed(ctx, repos); err != nil {
			return err
		}
		if err := service.SeedStore(ctx, repos); err != nil {
			return err
		}
		log.Info("Demo data seeded")
	}

	deps := service.Deps{
		Repos:   repos,
		Gateway: newGateway(cfg.Supplier, repos, log),
		Logger:  log,
	}
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedis(cfg.Redis)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("Redis unavailable, analytics are computed on every request", zap.Error(err))
		} else {
			deps.Cache = redisCache
			deps.AnalyticsTTL = cfg.Redis.AnalyticsTTL
		}
	}

	var opts []service.Option
	if cfg.Supplier.CallTimeout > 0 {
		opts = append(opts, service.WithCallTimeout(cfg.Supplier.CallTimeout))
	}
	services := service.New(deps, opts...)

	if err := applyAutomation(ctx, services, cfg.Automation); err != nil {
		return err
	}

	var bg *worker.Service
	if cfg.Queue.Enabled {
		client := queue.NewClient(cfg.Queue, log)
		defer client.Close()
		services.Orders.SetEnqueuer(client)
		services.Carts.SetNotifier(client)

		consumer := worker.NewConsumer(services, service.NewLogNotifier(log), client, log)
		bg, err = worker.NewService(cfg.Queue, consumer, log)
		if err != nil {
			return err
		}
		if err := bg.Start(); err != nil {
			return err
		}
		defer bg.Stop()
	}

	router := api.NewRouter(cfg, services, repos, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepositories(cfg config.DatabaseConfig, log *zap.Logger) (*repository.Repositories, error) {
	if strings.EqualFold(cfg.Driver, "memory") || cfg.Driver == "" {
		log.Info("Using in-memory repositories")
		return memory.NewRepositories(), nil
	}
	db, err := gormstore.Open(cfg.Driver, cfg.DSN, gormstore.PoolConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}, log)
	if err != nil {
		return nil, err
	}
	return gormstore.NewRepositories(db), nil
}

func newGateway(cfg config.SupplierConfig, repos *repository.Repositories, log *zap.Logger) supplier.Gateway {
	if strings.EqualFold(cfg.Mode, "http") {
		log.Info("Using supplier API", zap.String("endpoint", cfg.Endpoint))
		return supplierapi.NewGateway(supplierapi.NewClient(cfg, log), log)
	}

	shipping := supplier.FlatRate(cfg.ShippingBase, cfg.ShippingPerKg)
	if cfg.Seed > 0 {
		shipping = supplier.SeededRate(cfg.Seed, cfg.ShippingPerKg)
	}
	return supplier.NewSimulator(repos, log, supplier.WithShippingCost(shipping))
}

// applyAutomation carries the configured auto-accept default into the store settings
func applyAutomation(ctx context.Context, services *service.Services, cfg config.AutomationConfig) error {
	settings, err := services.Settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.Automation.AutoAcceptOrders == cfg.AutoAcceptOrders {
		return nil
	}
	automation := settings.Automation
	automation.AutoAcceptOrders = cfg.AutoAcceptOrders
	_, err = services.Settings.UpdateAutomation(ctx, automation)
	return err
}
