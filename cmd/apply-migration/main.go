// Command apply-migration executes a SQL migration file statement by
// statement against the configured database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"claro-backend/internal/config"
	"claro-backend/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <migration_file.sql>", os.Args[0])
	}

	migrationFile := os.Args[1]
	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	if err := applyStatements(db, string(sqlContent)); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println("Migration completed successfully")
}

func applyStatements(db *sql.DB, content string) error {
	statements := strings.Split(content, ";")
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		fmt.Printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := db.Exec(stmt); err != nil {
			preview := stmt
			if len(preview) > 100 {
				preview = preview[:100]
			}
			return fmt.Errorf("failed to execute statement %d: %w\nStatement: %s", i+1, err, preview)
		}
	}
	return nil
}
