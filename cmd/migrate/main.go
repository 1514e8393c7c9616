package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"semantic-notes-be/internal/model"
	"semantic-notes-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	dimensions := 768
	if raw := os.Getenv("EMBEDDING_DIMENSIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			log.Fatalf("Error: invalid EMBEDDING_DIMENSIONS %q", raw)
		}
		dimensions = n
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM migration...")

	// Extensions first, AutoMigrate cannot create them
	log.Println("Step 1: Setting up extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.UserRefreshToken{},
		&model.Note{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// The model tags a fixed vector size; re-type the column when the
	// configured embedding model uses a different one.
	log.Printf("Step 3: Ensuring notes.embedding is vector(%d)...", dimensions)
	alter := fmt.Sprintf(`ALTER TABLE notes ALTER COLUMN embedding TYPE vector(%d);`, dimensions)
	if err := db.Exec(alter).Error; err != nil {
		log.Printf("Warn: Failed to re-type embedding column: %v", err)
	}

	// HNSW keeps search fast once the table outgrows a sequential scan
	log.Println("Step 4: Creating similarity index...")
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_notes_embedding_hnsw
		ON notes USING hnsw (embedding vector_cosine_ops);`
	if err := db.Exec(indexSQL).Error; err != nil {
		log.Printf("Warn: Failed to create HNSW index: %v", err)
	}

	log.Println("Migration complete.")
}
