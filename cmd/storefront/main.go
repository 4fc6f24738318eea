package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/sequence"
)

const sessionPurgeInterval = time.Hour

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("storefront stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return err
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqlDB, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	m := metrics.New()

	products := catalog.NewCachedRepository(catalog.NewPostgresRepository(pool), rdb, catalog.DefaultProductTTL, logger)
	couponRepo := coupon.NewPostgresRepository(pool)
	stock := inventory.NewPostgresRepository(pool)
	orderRepo := order.NewRepository(pool)

	// --- AMQP ---
	var conn *amqp.Connection
	if cfg.PublishEvents || cfg.ConsumeEvents {
		conn, err = events.Dial(cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer conn.Close()
	}

	var publisher order.Publisher
	if cfg.PublishEvents {
		pub, err := events.NewPublisher(conn, sequence.NewAllocator(pool))
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	}

	orders := order.NewService(order.Deps{
		Orders:    orderRepo,
		Coupons:   couponRepo,
		Stock:     stock,
		Publisher: publisher,
		Cache:     products,
		Metrics:   m,
		Logger:    logger,
	})
	accounts := account.NewService(account.NewRepository(sqlDB), cfg.SessionTTL, logger)

	// --- HTTP ---
	h := httpapi.NewHandler(httpapi.Deps{
		Accounts:    accounts,
		Catalog:     products,
		Coupons:     coupon.NewService(couponRepo),
		Orders:      orders,
		Stock:       stock,
		CartStorage: cart.NewRedisStorage(rdb, cart.DefaultKeyPrefix, cart.DefaultTTL),
		Idempotency: idempotency.NewGuard(rdb, 0),
		Cache:       products,
		Metrics:     m,
		Logger:      logger,
		Config: httpapi.Config{
			RequestTimeout:   cfg.RequestTimeout,
			SessionTTL:       cfg.SessionTTL,
			CookieSecure:     cfg.CookieSecure,
			CORSAllowOrigins: cfg.CORSAllowOrigins,
			FulfillmentToken: cfg.FulfillmentToken,
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.ConsumeEvents {
		handle := events.OrderStatusHandler(orderRepo, dedup.NewCheckpoint(pool), logger)
		consumer, err := events.NewOrderStatusConsumer(conn, handle, logger, m)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		purgeSessions(gctx, accounts, logger)
		return nil
	})

	return g.Wait()
}

func purgeSessions(ctx context.Context, accounts *account.Service, logger *slog.Logger) {
	t := time.NewTicker(sessionPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := accounts.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Warn("purge expired sessions", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
