package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read from the environment
type Config struct {
	// Server
	Port string

	// Database
	DatabaseURL string
	SeedUsers   bool

	// Auth
	JWTSecret string
	JWTExpiry time.Duration

	// Firebase Cloud Messaging (base64 wins over file)
	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	// Geocoding (Google wins when both keys are set)
	GoogleMapsAPIKey string
	HEREAPIKey       string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int
	GeocodeCacheTTL  time.Duration

	// Event bus (disabled when AMQPURL is empty)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Routing
	RouteAvgSpeedKmh      float64
	PickupHandlingMinutes float64
	RouteLocation         *time.Location

	NotificationTimeout time.Duration
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		SeedUsers:                 getBoolEnv("SEED_USERS", false),
		JWTSecret:                 os.Getenv("APP_JWT_SECRET"),
		JWTExpiry:                 getDurationEnv("JWT_EXPIRY", 7*24*time.Hour),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", "./firebase-service-account.json"),
		GoogleMapsAPIKey:          os.Getenv("GOOGLE_MAPS_API_KEY"),
		HEREAPIKey:                os.Getenv("HERE_API_KEY"),
		GeocodeTimeout:            getDurationEnv("GEOCODE_TIMEOUT", 3*time.Second),
		GeocodeCacheSize:          getIntEnv("GEOCODE_CACHE_SIZE", 1000),
		GeocodeCacheTTL:           getDurationEnv("GEOCODE_CACHE_TTL", 24*time.Hour),
		AMQPURL:                   os.Getenv("AMQP_URL"),
		AMQPExchange:              getEnv("AMQP_EXCHANGE", "waste-reports"),
		AMQPRoutingKey:            getEnv("AMQP_ROUTING_KEY", "report.lifecycle"),
		RouteAvgSpeedKmh:          getFloatEnv("ROUTE_AVG_SPEED_KMH", 30),
		PickupHandlingMinutes:     getFloatEnv("PICKUP_HANDLING_MINUTES", 15),
		NotificationTimeout:       getDurationEnv("NOTIFICATION_TIMEOUT", 10*time.Second),
	}

	loc, err := time.LoadLocation(getEnv("ROUTE_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROUTE_TIMEZONE: %w", err)
	}
	cfg.RouteLocation = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("APP_JWT_SECRET environment variable is required")
	}
	if c.RouteAvgSpeedKmh <= 0 {
		return fmt.Errorf("ROUTE_AVG_SPEED_KMH must be positive, got %v", c.RouteAvgSpeedKmh)
	}
	if c.PickupHandlingMinutes < 0 {
		return fmt.Errorf("PICKUP_HANDLING_MINUTES must not be negative, got %v", c.PickupHandlingMinutes)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return i
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}
