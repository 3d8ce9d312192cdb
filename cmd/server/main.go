package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order_manager/internal/config"
	"order_manager/internal/database"
	"order_manager/internal/events"
	"order_manager/internal/handlers"
	"order_manager/internal/redis"
	"order_manager/internal/repository"
	"order_manager/internal/services"
	"order_manager/internal/store"
	"order_manager/pkg/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	// Database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogSQL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("failed to get database handle", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	s := store.New(db)
	repos := services.Repositories{
		Orders:    repository.NewOrderRepository(s),
		Items:     repository.NewOrderItemRepository(s),
		Products:  repository.NewProductRepository(s),
		Customers: repository.NewCustomerRepository(s),
	}

	checks := map[string]handlers.HealthCheck{"database": sqlDB.PingContext}

	// Redis backs order numbers and idempotency keys when configured
	var (
		numbers services.OrderNumberGenerator = services.NewCountingOrderNumbers(repos.Orders)
		idem    handlers.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		numbers = services.NewRedisOrderNumbers(redisClient, repos.Orders)
		idem = redisClient
		checks["redis"] = redisClient.Ping
	} else {
		log.Warn("REDIS_URL not set, idempotency keys disabled")
	}

	// Kafka
	var publisher events.Publisher = events.Nop{}
	var producer *events.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, log)
		producer.Start()
		publisher = producer
	} else {
		log.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	orderService := services.NewOrderService(repos, numbers, publisher, cfg.ServiceName, log)
	queryService := services.NewOrderQueryService(repos)
	customerService := services.NewCustomerService(repos.Customers)
	productService := services.NewProductService(repos.Products, log)

	router := handlers.NewRouter(log, checks,
		handlers.NewOrderHandler(orderService, queryService, idem, cfg.IdempotencyTTL, log),
		handlers.NewCustomerHandler(customerService),
		handlers.NewProductHandler(productService),
	)

	srv := &http.Server{Addr: ":" + cfg.ServerPort, Handler: router}

	go func() {
		log.Info("server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	if producer != nil {
		producer.Close()
	}
}
