// Package config loads daemon settings from the environment, following the
// get-with-default convention used throughout the rest of the stack.
package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/fernet/fernet-go"
)

// Config holds every environment-tunable setting icapd needs to start.
type Config struct {
	ListenAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	EncryptionKey *fernet.Key

	RateLimitMaxBytes int
	RateLimitWindow   time.Duration
	RateLimitBlock    time.Duration

	MaxScanBytes int
	Debug        bool
}

// Load reads Config from the process environment, applying the same
// defaults the rest of the stack uses in development.
func Load() (Config, error) {
	key, err := loadEncryptionKey()
	if err != nil {
		return Config{}, err
	}

	return Config{
		ListenAddr: getEnv("ICAP_LISTEN_ADDR", ":1344"),

		DBHost:     getEnv("DB_HOST", "mysql"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "pciproxy"),
		DBPassword: getEnv("DB_PASSWORD", "pciproxy123"),
		DBName:     getEnv("DB_NAME", "tokenshield"),

		EncryptionKey: key,

		RateLimitMaxBytes: parseIntEnv("RATE_LIMIT_MAX_BYTES", 4<<20),
		RateLimitWindow:   parseTimeEnv("RATE_LIMIT_WINDOW", "15m"),
		RateLimitBlock:    parseTimeEnv("RATE_LIMIT_BLOCK", "15m"),

		MaxScanBytes: parseIntEnv("MAX_SCAN_BYTES", 1<<16),
		Debug:        getEnv("DEBUG_MODE", "0") == "1",
	}, nil
}

// DSN builds the MySQL data source name for the configured database.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func loadEncryptionKey() (*fernet.Key, error) {
	encoded := getEnv("ENCRYPTION_KEY", "")
	if encoded == "" {
		key := &fernet.Key{}
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("config: generate encryption key: %w", err)
		}
		log.Printf("WARNING: no ENCRYPTION_KEY set, using a generated key for this process only")
		return key, nil
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("config: invalid ENCRYPTION_KEY: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("config: ENCRYPTION_KEY must decode to 32 bytes, got %d", len(raw))
	}

	key := new(fernet.Key)
	copy(key[:], raw)
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseTimeEnv(key, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s: %s, using default: %s", key, value, defaultValue)
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func parseIntEnv(key string, defaultValue int) int {
	value := getEnv(key, strconv.Itoa(defaultValue))
	result, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s: %s, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return result
}
