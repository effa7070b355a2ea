package database

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wasteroute-backend/internal/models"
)

type seedAccount struct {
	email    string
	password string
	name     string
	role     models.Role
}

var seedAccounts = []seedAccount{
	{email: "admin@wasteroute.local", password: "admin123", name: "Admin User", role: models.RoleAdmin},
	{email: "collector@wasteroute.local", password: "collector123", name: "Jane Collector", role: models.RoleCollector},
	{email: "citizen@wasteroute.local", password: "citizen123", name: "Sam Citizen", role: models.RoleCitizen},
}

// SeedUsers creates one account per role on an empty users table
func SeedUsers(ctx context.Context, s *Store) error {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	now := time.Now().Unix()
	for _, account := range seedAccounts {
		hashed, err := bcrypt.GenerateFromPassword([]byte(account.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := &models.User{
			ID:        uuid.New().String(),
			Email:     account.email,
			Password:  string(hashed),
			Name:      account.name,
			Role:      account.role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateUser(ctx, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s) / %s", account.email, account.role, account.password)
	}

	log.Println("✓ Successfully seeded test users")
	return nil
}
