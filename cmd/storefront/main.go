package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/config"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/consumer"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	h "github.com/innovativedesigner773/Best-Brightness-sub000/internal/http"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/logger"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/persist"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/session"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/stock"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/store"
)

func main() {
	loaded, err := config.LoadDotEnv("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})
	if len(loaded) > 0 {
		log.Info("loaded env files", "files", loaded)
	}

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	slots, closeSlots, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSlots()

	lookup, closeLookup, err := openLookup(cfg, log)
	if err != nil {
		return err
	}
	defer closeLookup()

	writer := persist.NewWriter(slots, log.With("component", "slot_writer"))
	registry := session.NewRegistry(session.Deps{
		Cart:       persist.NewAdapter[domain.CartLine](persist.CollectionCart, slots, writer, log),
		Favourites: persist.NewAdapter[domain.FavouriteItem](persist.CollectionFavourites, slots, writer, log),
		Lookup:     stock.NewGuardedLookup(lookup, stock.DefaultBreakerSettings(), log),
	}, session.Options{
		MergeGuestOnSignIn: cfg.MergeGuestOnSignIn,
		RefreshInterval:    cfg.StockRefreshInterval,
		RefreshJitter:      cfg.StockRefreshJitter,
		IdleTimeout:        cfg.SessionIdleTimeout,
	}, log)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	var checkout *consumer.CheckoutConsumer
	if len(cfg.KafkaBrokers) > 0 {
		checkout = consumer.NewCheckoutConsumer(registry, log, cfg.KafkaBrokers...)
		go checkout.Run(consumerCtx)
		log.Info("checkout consumer started", "brokers", cfg.KafkaBrokers)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      h.NewRouter(registry, cfg.RequestTimeout, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "addr", srv.Addr, "store", cfg.StoreBackend, "stock", cfg.StockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	stopConsumer()
	if checkout != nil {
		if err := checkout.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := registry.CloseAll(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("close sessions: %w", err))
	}
	if err := writer.Close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}

	log.Info("storefront stopped")
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
		return store.NewRedisStore(client, cfg.RedisSlotTTL), func() { _ = client.Close() }, nil

	case config.BackendMongo:
		db, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to MongoDB", "database", cfg.MongoDBName)
		return openMongoStore(ctx, db, cfg.MongoSlotRetention)

	default:
		return store.NewMemoryStore(cfg.MemoryCapacity), func() {}, nil
	}
}

// openMongoStore owns db from here on: it disconnects the client when setup
// fails.
func openMongoStore(ctx context.Context, db *mongo.Database, retention time.Duration) (store.Store, func(), error) {
	disconnect := func() { _ = db.Client().Disconnect(context.Background()) }

	s := store.NewMongoStore(db)
	if retention > 0 {
		if err := s.CreateIndexes(ctx, retention); err != nil {
			disconnect()
			return nil, nil, err
		}
	}
	return s, disconnect, nil
}

func openLookup(cfg config.Config, log *slog.Logger) (stock.Lookup, func(), error) {
	switch cfg.StockBackend {
	case config.StockSQLite:
		l, err := stock.NewSQLLookup(cfg.StockDBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := l.RunMigrations(); err != nil {
			_ = l.Close()
			return nil, nil, err
		}
		log.Info("stock lookup ready", "backend", "sqlite", "path", cfg.StockDBPath)
		return l, func() { _ = l.Close() }, nil

	default:
		if cfg.StockSeedFile == "" {
			log.Warn("no stock seed file, every product reads as out of stock")
			return stock.NewStaticLookup(), func() {}, nil
		}
		l, err := stock.LoadStaticLookup(cfg.StockSeedFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("stock lookup ready", "backend", "static", "seed", cfg.StockSeedFile)
		return l, func() {}, nil
	}
}
