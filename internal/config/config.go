package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration
	JournalDir  string
	CORSOrigin  string
	// Meilisearch - optional, in-memory index used when empty
	MeiliURL       string
	MeiliMasterKey string
	// Redis - optional, snapshots disabled when empty
	RedisURL    string
	SnapshotTTL time.Duration
	// Object storage - optional, archive disabled when endpoint empty
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:        getenv("API_ADDR", ":8788"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		JWTSecret:   getenv("REDLINE_JWT_SECRET", "redline-dev-secret"),
		SessionTTL:  time.Duration(getenvInt("REDLINE_SESSION_TTL_SECONDS", 28800)) * time.Second,
		JournalDir:  getenv("REDLINE_JOURNAL_DIR", "./data/journal"),
		CORSOrigin:  getenv("REDLINE_CORS_ORIGIN", "*"),

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		RedisURL:    getenv("REDIS_URL", ""),
		SnapshotTTL: time.Duration(getenvInt("REDLINE_SNAPSHOT_TTL_SECONDS", 604800)) * time.Second,

		ArchiveEndpoint:  getenv("ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKey: getenv("ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey: getenv("ARCHIVE_SECRET_KEY", ""),
		ArchiveBucket:    getenv("ARCHIVE_BUCKET", "redline-exports"),
		ArchiveUseSSL:    getenvBool("ARCHIVE_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
