package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	RedisAddress      string
	RedisPassword     string
	IssueLimitKey     string
	IssueDailyLimit   int64
	JWTSecret         []byte
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	FileStoreDriver   string
	FTPHost           string
	FTPPort           int
	FTPUser           string
	FTPPassword       string
	FTPDir            string
	FilesBaseURL      string
	LocalFilesDir     string
	CORSOrigin        string
	NodeID            int64
	SeedCategories    []string
}

// DefaultCategories are seeded into an empty categories collection.
var DefaultCategories = []string{
	"Roads",
	"Waste Management",
	"Streetlights",
	"Water Supply",
	"Parks & Trees",
	"Other",
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset keys.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := envReader{lookup: lookup}
	cfg := &Config{
		Port:              e.str("PORT", "8080"),
		Env:               e.str("GO_ENV", "development"),
		StoreDriver:       strings.ToLower(e.str("STORE_DRIVER", "mongo")),
		MongoURI:          e.str("MONGODB_URI", ""),
		MongoDatabase:     e.str("MONGODB_DATABASE", "civictrack"),
		MongoTransactions: e.boolean("MONGODB_TRANSACTIONS", true),
		RedisAddress:      e.str("REDIS_ADDRESS", ""),
		RedisPassword:     e.str("REDIS_PASSWORD", ""),
		IssueLimitKey:     e.str("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		IssueDailyLimit:   e.int64("ISSUE_DAILY_LIMIT", 20),
		JWTSecret:         []byte(e.str("JWT_SECRET", "")),
		AccessTokenTTL:    e.duration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL:   e.duration("JWT_REFRESH_TTL", 168*time.Hour),
		FileStoreDriver:   strings.ToLower(e.str("FILESTORE_DRIVER", "local")),
		FTPHost:           e.str("FTP_HOST", ""),
		FTPPort:           int(e.int64("FTP_PORT", 21)),
		FTPUser:           e.str("FTP_USER", ""),
		FTPPassword:       e.str("FTP_PASSWORD", ""),
		FTPDir:            e.str("FTP_DIR", "/"),
		FilesBaseURL:      e.str("FILES_BASE_URL", "http://localhost:8080/files"),
		LocalFilesDir:     e.str("LOCAL_FILES_DIR", "uploads"),
		CORSOrigin:        e.str("CORS_ORIGIN", "http://localhost:5173"),
		NodeID:            e.int64("NODE_ID", 1),
		SeedCategories:    e.list("SEED_CATEGORIES", DefaultCategories),
	}
	if e.err != nil {
		return nil, e.err
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("please define the JWT_SECRET environment variable")
	}
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("please define the MONGODB_URI environment variable")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.FileStoreDriver {
	case "ftp":
		if c.FTPHost == "" {
			return fmt.Errorf("please define the FTP_HOST environment variable")
		}
	case "local":
	default:
		return fmt.Errorf("unknown FILESTORE_DRIVER %q", c.FileStoreDriver)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// envReader keeps the first parse error so Load can report it once.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) int64(key string, def int64) int64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s %q: %w", key, raw, err))
		return def
	}
	return v
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s %q: %w", key, raw, err))
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s %q: %w", key, raw, err))
		return def
	}
	return v
}

func (e *envReader) list(key string, def []string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
