package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/availability"
	"ms-booking/internal/booking/api"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/kafka"
	"ms-booking/internal/lifecycle"
	"ms-booking/internal/lifecycle/qr"
	"ms-booking/internal/logger"
	"ms-booking/internal/store"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open Postgres: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	log.Info("DATABASE", "Postgres connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.NewRunner(bunDB, cfg.Database.MigrationsDir).Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		log.Info("DATABASE", "Migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unreachable (%v), availability cache disabled", err))
			redisClient = nil
		}
	}
	cache := availability.NewCache(redisClient, cfg.Redis.AvailabilityTTL)

	producer := kafka.NewDisabledProducer()
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{kafka.TopicTicketLifecycle}); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, kafka.TopicTicketLifecycle)
	}
	defer producer.Close()

	scheduler := lifecycle.NewScheduler()
	defer scheduler.Stop()

	entityStore := store.New(bunDB)
	engine := lifecycle.NewService(
		entityStore,
		scheduler,
		producer,
		cache,
		qr.NewGenerator(cfg.Booking.QRSecret),
		log,
		cfg.Booking.ReservationTTL,
	)
	handler := api.NewHandler(entityStore, engine, cache)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "🚀 Booking service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "✅ Booking service shutdown complete")
}
