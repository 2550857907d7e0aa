// Command dispatcher runs the outbox relay outside the API process. Notifications are
// persisted here and fanned out to API instances over Redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lifebee/internal/config"
	"lifebee/internal/database"
	"lifebee/internal/notification"
	"lifebee/internal/repository"
	"lifebee/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("error", "text").Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format).WithFields(map[string]interface{}{"component": "dispatcher"})

	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publishers notification.MultiPublisher
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		publishers = append(publishers, notification.NewRedisPublisher(rdb, cfg.Redis.Channel))
	} else {
		log.Warn("Redis disabled: notifications are stored but not pushed to websocket clients")
	}

	dispatcher := notification.NewDispatcher(
		repository.NewTransactionManager(db),
		repository.NewOutboxRepository(db),
		repository.NewNotificationRepository(db),
		publishers,
		cfg.Outbox.MaxAttempts,
		log,
	)

	relay := notification.NewRelay(dispatcher, cfg.Outbox.Schedule, cfg.Outbox.BatchSize, log)
	if err := relay.Start(); err != nil {
		log.Fatalf("Outbox relay failed to start: %v", err)
	}

	// Drain what accumulated while no relay was running
	if n, err := relay.RunOnce(ctx); err != nil {
		log.Errorf("initial outbox sweep failed: %v", err)
	} else if n > 0 {
		log.Infof("Delivered %d pending events on startup", n)
	}

	<-ctx.Done()
	relay.Stop()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Dispatcher stopped")
}
