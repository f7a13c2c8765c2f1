package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lingoleap-app/lingo_api/seed/seeders"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, courses, admin")
		dbPath   = flag.String("db", "", "SQLite path (overrides DATABASE_URL)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		if err := mainSeeder.SeedAll(); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	case "courses":
		if err := mainSeeder.SeedCoursesOnly(); err != nil {
			log.Fatalf("Failed to seed courses: %v", err)
		}
	case "admin":
		if err := mainSeeder.SeedAdminOnly(); err != nil {
			log.Fatalf("Failed to seed admin: %v", err)
		}
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'courses', or 'admin'", *seedType)
	}

	log.Println("Seeding operation completed successfully!")
}

func openDB(sqlitePath string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Info)}

	if sqlitePath != "" {
		log.Printf("Connecting to sqlite database: %s", sqlitePath)
		return gorm.Open(sqlite.Open(sqlitePath), cfg)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("DATABASE_URL not set, falling back to app.db")
		return gorm.Open(sqlite.Open("app.db"), cfg)
	}

	return gorm.Open(postgres.Open(dsn), cfg)
}

func showHelp() {
	log.Print(`
Database Seeding Tool

Usage: go run seed/main.go [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, courses, admin
  -db string
        SQLite path (overrides DATABASE_URL)
  -help
        Show this help message

Environment Variables:
  DATABASE_URL - Postgres DSN used when -db is not given
`)
}
