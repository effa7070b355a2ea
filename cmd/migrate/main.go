package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"wasteroute-backend/internal/config"
	"wasteroute-backend/internal/database"
)

func main() {
	seed := flag.Bool("seed", false, "create one account per role when the users table is empty")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *seed || cfg.SeedUsers {
		if err := database.SeedUsers(context.Background(), database.NewStore(db)); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Println("Migration completed successfully!")

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM reports GROUP BY status ORDER BY status`
	if err := db.Select(&rows, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	var users int
	if err := db.Get(&users, `SELECT COUNT(*) FROM users`); err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:                   %d\n", users)
	for _, row := range rows {
		fmt.Printf("Reports %-16s %d\n", row.Status+":", row.Count)
	}
	fmt.Println("============================================================")
}
