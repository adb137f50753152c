package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	HTTPServer HTTPServerConfig
	Detection  DetectionConfig
	SMTP       SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicReadings string
	TopicAlerts   string
	NumPartitions int
}

type HTTPServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// DetectionConfig holds every tunable of the scoring pipeline. It is loaded
// once at startup and passed by value into the pipeline; nothing mutates it.
type DetectionConfig struct {
	// Savitzky-Golay smoothing
	SmoothingWindow int // must be odd and greater than the polyorder
	PolyOrder       int

	// Spike suppression (off by default)
	SuppressSpikes      bool
	TempSpikeThreshold  float64
	SmokeSpikeThreshold float64

	// Variance damping
	TempPivot      float64
	TempSteepness  float64
	SmokePivot     float64
	SmokeSteepness float64

	// Wind sigmoid
	WindPivot     float64
	WindSteepness float64

	// Risk composition
	TempWeight  float64
	SmokeWeight float64
	WindWeight  float64

	// Alerting. Hysteresis is on by default: smoothing spreads a spike onto
	// its neighbors, and the fold collapses that plateau into one event.
	AlertThreshold float64
	Hysteresis     bool
	ResetThreshold float64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "wildfire_user"),
			Password: getEnv("DB_PASSWORD", "wildfire_pass"),
			DBName:   getEnv("DB_NAME", "wildfire_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicReadings: getEnv("KAFKA_TOPIC_READINGS", "wildfire.readings.batches"),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "wildfire.alerts"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		HTTPServer: HTTPServerConfig{
			Port:         getEnvAsInt("HTTP_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			CacheTTL:     getEnvAsDuration("HTTP_CACHE_TTL", 5*time.Minute),
		},
		Detection: DetectionConfig{
			SmoothingWindow:     getEnvAsInt("DETECTION_SMOOTHING_WINDOW", 13),
			PolyOrder:           getEnvAsInt("DETECTION_POLY_ORDER", 2),
			SuppressSpikes:      getEnvAsBool("DETECTION_SUPPRESS_SPIKES", false),
			TempSpikeThreshold:  getEnvAsFloat("DETECTION_TEMP_SPIKE_THRESHOLD", 10.0),
			SmokeSpikeThreshold: getEnvAsFloat("DETECTION_SMOKE_SPIKE_THRESHOLD", 0.6),
			TempPivot:           getEnvAsFloat("DETECTION_TEMP_PIVOT", 4.0),
			TempSteepness:       getEnvAsFloat("DETECTION_TEMP_STEEPNESS", 3.0),
			SmokePivot:          getEnvAsFloat("DETECTION_SMOKE_PIVOT", 0.02),
			SmokeSteepness:      getEnvAsFloat("DETECTION_SMOKE_STEEPNESS", 20.0),
			WindPivot:           getEnvAsFloat("DETECTION_WIND_PIVOT", 6.0),
			WindSteepness:       getEnvAsFloat("DETECTION_WIND_STEEPNESS", 0.8),
			TempWeight:          getEnvAsFloat("DETECTION_TEMP_WEIGHT", 60),
			SmokeWeight:         getEnvAsFloat("DETECTION_SMOKE_WEIGHT", 60),
			WindWeight:          getEnvAsFloat("DETECTION_WIND_WEIGHT", 15),
			AlertThreshold:      getEnvAsFloat("DETECTION_ALERT_THRESHOLD", 70),
			Hysteresis:          getEnvAsBool("DETECTION_HYSTERESIS", true),
			ResetThreshold:      getEnvAsFloat("DETECTION_RESET_THRESHOLD", 65),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "wildfire-detection@example.com"),
			To:       getEnv("SMTP_TO", "ops@example.com"),
		},
	}

	if err := config.Detection.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects parameter combinations the smoothing filter cannot accept.
func (d DetectionConfig) Validate() error {
	if d.SmoothingWindow%2 == 0 {
		return fmt.Errorf("smoothing window must be odd, got %d", d.SmoothingWindow)
	}
	if d.SmoothingWindow <= d.PolyOrder {
		return fmt.Errorf("smoothing window (%d) must be greater than polyorder (%d)",
			d.SmoothingWindow, d.PolyOrder)
	}
	if d.PolyOrder < 0 {
		return fmt.Errorf("polyorder must be non-negative, got %d", d.PolyOrder)
	}
	if d.ResetThreshold > d.AlertThreshold {
		return fmt.Errorf("reset threshold (%.1f) must not exceed alert threshold (%.1f)",
			d.ResetThreshold, d.AlertThreshold)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
