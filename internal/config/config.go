package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          string
	Username      string
	Password      string
	Database      string
	SSLMode       string
	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
	Addr            string
	Enabled         bool
	AvailabilityTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

type BookingConfig struct {
	// ReservationTTL is the window after which an unpurchased reservation
	// lapses automatically.
	ReservationTTL time.Duration
	QRSecret       string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			Username:      getEnv("DB_USERNAME", "booking_user"),
			Password:      getEnv("DB_PASSWORD", "booking_pass"),
			Database:      getEnv("DB_NAME", "booking"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", true),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:         getEnvBool("REDIS_ENABLED", true),
			AvailabilityTTL: time.Duration(getEnvInt("AVAILABILITY_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
		},
		Booking: BookingConfig{
			ReservationTTL: time.Duration(getEnvInt("RESERVATION_TTL_MINUTES", 15)) * time.Minute,
			QRSecret:       getEnv("QR_SECRET_KEY", ""),
		},
	}
}

// DSN renders the postgres connection string for lib/pq.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
