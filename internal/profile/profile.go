package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where cartsync stores its data
	DSN string
	// Driver is the backing store driver (sqlite, postgres or rest)
	Driver string
	// Version is the current version of server
	Version string

	// REST backing store
	RESTURL string // CARTSYNC_REST_URL
	RESTKey string // CARTSYNC_REST_KEY

	// Shared cache tier
	CacheTier     string        // CARTSYNC_CACHE_TIER: none, memory or redis (default: none)
	CacheTTL      time.Duration // CARTSYNC_CACHE_TTL (default: 5m)
	RedisAddr     string        // CARTSYNC_REDIS_ADDR (default: localhost:6379)
	RedisPassword string        // CARTSYNC_REDIS_PASSWORD
	RedisDB       int           // CARTSYNC_REDIS_DB

	// Per-user request rate
	RateLimit float64 // CARTSYNC_RATE_LIMIT requests per second (default: 20)
	RateBurst int     // CARTSYNC_RATE_BURST (default: 40)

	// Price formatting
	Currency string // CARTSYNC_CURRENCY (default: EUR)
	Locale   string // CARTSYNC_LOCALE (default: fr)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the settings that have no command-line flag.
func (p *Profile) FromEnv() {
	p.RESTURL = getEnvOrDefault("CARTSYNC_REST_URL", p.RESTURL)
	p.RESTKey = getEnvOrDefault("CARTSYNC_REST_KEY", p.RESTKey)

	p.CacheTier = getEnvOrDefault("CARTSYNC_CACHE_TIER", "none")
	p.CacheTTL = 5 * time.Minute
	if v, err := time.ParseDuration(os.Getenv("CARTSYNC_CACHE_TTL")); err == nil && v > 0 {
		p.CacheTTL = v
	}
	p.RedisAddr = getEnvOrDefault("CARTSYNC_REDIS_ADDR", "localhost:6379")
	p.RedisPassword = os.Getenv("CARTSYNC_REDIS_PASSWORD")
	if v, err := strconv.Atoi(os.Getenv("CARTSYNC_REDIS_DB")); err == nil {
		p.RedisDB = v
	}

	p.RateLimit = 20
	if v, err := strconv.ParseFloat(os.Getenv("CARTSYNC_RATE_LIMIT"), 64); err == nil && v > 0 {
		p.RateLimit = v
	}
	p.RateBurst = 40
	if v, err := strconv.Atoi(os.Getenv("CARTSYNC_RATE_BURST")); err == nil && v > 0 {
		p.RateBurst = v
	}

	p.Currency = getEnvOrDefault("CARTSYNC_CURRENCY", "EUR")
	p.Locale = getEnvOrDefault("CARTSYNC_LOCALE", "fr")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "sqlite":
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a dsn")
		}
		return nil
	case "rest":
		if p.RESTURL == "" {
			return errors.New("rest driver requires CARTSYNC_REST_URL")
		}
		return nil
	default:
		return errors.Errorf("unknown driver %q: expected sqlite, postgres or rest", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "cartsync")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/cartsync"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("cartsync_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
