package main

import (
	"context"
	"errors"
	"fmt"
	"insta-pics/config"
	"insta-pics/httpapi"
	"insta-pics/photoshare"
	"insta-pics/photoshare/inmemoryimpl"
	"insta-pics/photoshare/mongoimpl"
	"insta-pics/photoshare/redisimpl"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

func newStorage(ctx context.Context, cfg *config.Config) (photoshare.Storage, func(), error) {
	switch cfg.StorageMode {
	case config.StorageInMemory:
		return inmemoryimpl.NewInMemoryStorage(), func() {}, nil
	case config.StorageRedis:
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		return redisimpl.NewRedisStorage(redisClient, nil), func() { _ = redisClient.Close() }, nil
	case config.StorageMongo, config.StorageCached:
		mongoStorage, err := mongoimpl.NewMongoStorage(ctx, cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		closeMongo := func() { _ = mongoStorage.Close(context.Background()) }
		if cfg.StorageMode == config.StorageMongo {
			return mongoStorage, closeMongo, nil
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		return redisimpl.NewRedisStorage(redisClient, mongoStorage), func() {
			_ = redisClient.Close()
			closeMongo()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
}

func newPolicy(cfg *config.Config) photoshare.VerificationPolicy {
	switch cfg.TwoFactor {
	case config.TwoFactorOff:
		return photoshare.NoSecondFactor{}
	case config.TwoFactorAlways:
		return photoshare.RandomPolicy{ChallengeRate: 1, AcceptRate: 0.9}
	default:
		return photoshare.NewRandomPolicy()
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	srv := httpapi.NewServer("0.0.0.0:"+cfg.Port, httpapi.Deps{
		Registry: photoshare.NewRegistry(storage, cfg.StoreCacheSize, logger),
		Authenticator: photoshare.Authenticator{
			Policy:  newPolicy(cfg),
			Latency: cfg.VerifyLatency,
		},
		Uploader:       photoshare.Uploader{Latency: cfg.UploadLatency},
		Challenges:     photoshare.NewChallenges(cfg.ChallengeTTL),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", srv.Addr), slog.String("storage", cfg.StorageMode))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
