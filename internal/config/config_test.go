package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/waste")
	t.Setenv("APP_JWT_SECRET", "secret")
	t.Setenv("ROUTE_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.RouteAvgSpeedKmh != 30 {
		t.Errorf("avg speed = %v, want 30", cfg.RouteAvgSpeedKmh)
	}
	if cfg.PickupHandlingMinutes != 15 {
		t.Errorf("handling minutes = %v, want 15", cfg.PickupHandlingMinutes)
	}
	if cfg.JWTExpiry != 7*24*time.Hour {
		t.Errorf("jwt expiry = %v", cfg.JWTExpiry)
	}
	if cfg.RouteLocation != time.UTC {
		t.Errorf("route location = %v, want UTC", cfg.RouteLocation)
	}
	if cfg.AMQPURL != "" {
		t.Errorf("amqp must be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/waste")
	t.Setenv("APP_JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("ROUTE_AVG_SPEED_KMH", "45.5")
	t.Setenv("PICKUP_HANDLING_MINUTES", "not-a-number")
	t.Setenv("SEED_USERS", "true")
	t.Setenv("NOTIFICATION_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
	if cfg.RouteAvgSpeedKmh != 45.5 {
		t.Errorf("avg speed = %v, want 45.5", cfg.RouteAvgSpeedKmh)
	}
	if cfg.PickupHandlingMinutes != 15 {
		t.Errorf("invalid value must fall back to default, got %v", cfg.PickupHandlingMinutes)
	}
	if !cfg.SeedUsers {
		t.Errorf("seed users = false, want true")
	}
	if cfg.NotificationTimeout != 2*time.Second {
		t.Errorf("notification timeout = %v, want 2s", cfg.NotificationTimeout)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_JWT_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestValidateRejectsNonPositiveSpeed(t *testing.T) {
	cfg := &Config{DatabaseURL: "x", JWTSecret: "y", RouteAvgSpeedKmh: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero speed")
	}
}
