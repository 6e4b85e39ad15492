package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	LogLevel         string
	ServerRunAddress string
	StoreDriver      string
	DatabaseURI      string
	SQLitePath       string
	PollInterval     time.Duration
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = os.Getenv("LOG_LEVEL")
	if LogLevel == "" {
		LogLevel = "info"
	}

	ServerRunAddress = os.Getenv("SERVER_RUN_ADDRESS")
	if ServerRunAddress == "" {
		ServerRunAddress = "0.0.0.0:8080"
	}

	// postgres is the shared multi-device store; sqlite is the single-device
	// fallback; memory keeps rooms only for the lifetime of the process.
	StoreDriver = os.Getenv("STORE_DRIVER")
	if StoreDriver == "" {
		StoreDriver = "postgres"
	}

	DatabaseURI = os.Getenv("DATABASE_URI")
	if DatabaseURI == "" {
		DatabaseURI = "host=db user=postgres password=password dbname=ignite sslmode=disable"
	}

	SQLitePath = os.Getenv("SQLITE_PATH")
	if SQLitePath == "" {
		SQLitePath = "ignite.db"
	}

	PollInterval = 2 * time.Second
	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Println("Invalid POLL_INTERVAL, using default value")
		} else {
			PollInterval = parsed
		}
	}
}
