package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irad15/wildfire-detection/internal/cache"
	"github.com/irad15/wildfire-detection/internal/database"
	"github.com/irad15/wildfire-detection/internal/detection"
	"github.com/irad15/wildfire-detection/internal/queue"
	"github.com/irad15/wildfire-detection/internal/server"
	"github.com/irad15/wildfire-detection/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Detection API Service...")

	// Connect to database (runs remain queryable even when the detector is down)
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect result cache
	resultCache, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.HTTPServer.CacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer resultCache.Close()
	fmt.Println("Connected to Redis")

	// Ensure the readings topic exists before producing to it
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings, cfg.Kafka.NumPartitions, 1); err != nil {
		fmt.Printf("Note: topic creation: %v\n", err)
	}

	// Create batch producer
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings)
	defer producer.Close()
	fmt.Println("Kafka producer initialized")

	// Create detection service
	service := detection.NewService(cfg.Detection)

	// Create HTTP server
	httpServer := server.NewHTTPServer(&cfg.HTTPServer, service, resultCache, producer, db)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	fmt.Println("\n✓ Detection API Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v\n", err)
	}
}
