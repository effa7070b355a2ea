package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Database URL length: %d characters", len(dbURL))
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error message: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

// Migrations are idempotent and applied in order on every start
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('citizen', 'collector', 'admin')),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,

	`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		reporter_id TEXT NOT NULL,
		assigned_collector_id TEXT,
		longitude DOUBLE PRECISION NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		address TEXT,
		status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'assigned', 'in_progress', 'collected', 'resolved', 'cancelled')),
		urgency TEXT NOT NULL DEFAULT 'medium' CHECK(urgency IN ('low', 'medium', 'high', 'critical')),
		waste_type TEXT NOT NULL DEFAULT 'mixed',
		classifier_confidence DOUBLE PRECISION,
		description TEXT NOT NULL DEFAULT '',
		estimated_quantity DOUBLE PRECISION,
		image_filename TEXT,
		actual_quantity DOUBLE PRECISION,
		confirmed_waste_type TEXT,
		collector_notes TEXT,
		created_at BIGINT NOT NULL,
		assigned_at BIGINT,
		collected_at BIGINT,
		resolved_at BIGINT,
		cancelled_at BIGINT,
		updated_at BIGINT NOT NULL,
		FOREIGN KEY (reporter_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (assigned_collector_id) REFERENCES users(id) ON DELETE SET NULL,
		CHECK ((assigned_collector_id IS NOT NULL) = (status IN ('assigned', 'in_progress', 'collected', 'resolved')))
	)`,

	`CREATE TABLE IF NOT EXISTS pickup_logs (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL,
		collector_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'started' CHECK(status IN ('started', 'completed', 'failed')),
		start_time BIGINT NOT NULL,
		end_time BIGINT,
		actual_quantity DOUBLE PRECISION,
		confirmed_waste_type TEXT,
		notes TEXT,
		failure_reason TEXT,
		created_at BIGINT NOT NULL,
		FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE,
		FOREIGN KEY (collector_id) REFERENCES users(id) ON DELETE CASCADE,
		CHECK ((status = 'started') = (end_time IS NULL))
	)`,

	`CREATE TABLE IF NOT EXISTS fcm_tokens (
		id SERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,

	// One open pickup per (report, collector)
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + openPickupIndex + ` ON pickup_logs(report_id, collector_id) WHERE status = 'started'`,

	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_collector_status ON reports(assigned_collector_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_reporter ON reports(reporter_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_pickup_logs_report ON pickup_logs(report_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pickup_logs_collector_end ON pickup_logs(collector_id, status, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
}

func Migrate(db *sqlx.DB) error {
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
