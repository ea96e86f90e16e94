// Drops every environment-prefixed table. Destructive; meant for resetting
// a development database before reseeding.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	var prefix string
	if env != "prod" {
		prefix = env + "_"
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Order respects foreign keys; CASCADE covers anything missed.
	tables := []string{
		"turn_blocks",
		"turns",
		"chats",
		"documents",
		"folders",
		"workspaces",
		"user_preferences",
		"provider_keys",
	}

	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s%s CASCADE", prefix, table)
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to drop %s%s: %v", prefix, table, err)
		}
	}

	fmt.Printf("All tables dropped (prefix: %q)\n", prefix)
}
