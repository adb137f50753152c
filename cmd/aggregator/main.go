package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irad15/wildfire-detection/internal/aggregation"
	"github.com/irad15/wildfire-detection/internal/database"
	"github.com/irad15/wildfire-detection/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Aggregation Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Create daily aggregator
	dailyAgg := aggregation.NewDailyAggregator(db)

	// Catch up on yesterday immediately, then re-run every 24 hours
	runAggregation(dailyAgg)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			runAggregation(dailyAgg)
		}
	}()

	fmt.Println("\n✓ Aggregation Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}

func runAggregation(agg *aggregation.DailyAggregator) {
	fmt.Println("\n--- Running Daily Aggregation ---")
	if err := agg.AggregatePreviousDay(); err != nil {
		log.Printf("Daily aggregation failed: %v\n", err)
	}
	fmt.Println("--- Daily Aggregation Complete ---")
}
