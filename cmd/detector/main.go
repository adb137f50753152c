package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irad15/wildfire-detection/internal/database"
	"github.com/irad15/wildfire-detection/internal/detection"
	"github.com/irad15/wildfire-detection/internal/incident"
	"github.com/irad15/wildfire-detection/internal/metrics"
	"github.com/irad15/wildfire-detection/internal/queue"
	"github.com/irad15/wildfire-detection/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Detector Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis for incident state
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	// Create incident state manager
	stateManager := incident.NewStateManager(redisClient)

	// Create alert producer (for notifications)
	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()
	fmt.Println("Alert notification producer initialized")

	// Create incident tracker
	tracker := incident.NewTracker(db, stateManager, alertProducer)

	// Create consumer for reading batches
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings, "detector-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	// Create detection service and runner
	service := detection.NewService(cfg.Detection)
	runner := queue.NewRunner(consumer, db, service, tracker)
	runner.Start(ctx)
	fmt.Println("Detection runner started")

	// Print consumer stats and refresh the open-incident gauge periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := consumer.Stats()
			fmt.Printf("Consumer stats: Messages=%d, Bytes=%d, Errors=%d\n",
				stats.Messages, stats.Bytes, stats.Errors)

			open, err := stateManager.CountOpen(ctx)
			if err != nil {
				log.Printf("Failed to count open incidents: %v\n", err)
				continue
			}
			metrics.IncidentsOpen.Set(float64(open))
		}
	}()

	fmt.Println("\n✓ Detector Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	runner.Stop()
}
