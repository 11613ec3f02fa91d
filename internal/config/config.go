package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mareero-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendWorkbook = "workbook"
	StoreBackendMemory   = "memory"

	defaultDSN         = "host=localhost user=postgres password=postgres dbname=mareero port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort    string
	CORSOrigins string

	StoreBackend  string
	DatabaseDSN   string
	WorkbookPath  string
	StoreCacheTTL time.Duration

	JWTSecret           string
	ManagerPasswordHash string

	CatalogPath string
	Catalog     models.Catalog
	Location    *time.Location

	ReportTitle    string
	ReportSubtitle string
	SplitByBranch  bool

	LogLevel  string
	LogFormat string
}

// Load reads the environment. Missing secrets are errors; insecure defaults
// are reported through Warnings.
func Load() (*Config, error) {
	cfg, err := LoadStore()
	if err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	cfg.ManagerPasswordHash, err = managerPasswordHash()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStore reads everything except the manager credentials, for the
// offline commands.
func LoadStore() (*Config, error) {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		WorkbookPath:   getEnv("WORKBOOK_PATH", "./data/records.xlsx"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		ReportTitle:    getEnv("REPORT_TITLE", "MAREERO SYSTEM"),
		ReportSubtitle: getEnv("REPORT_SUBTITLE", "General Trading & Spare Parts LLC"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	switch cfg.StoreBackend {
	case StoreBackendPostgres, StoreBackendWorkbook, StoreBackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND %q is not supported", cfg.StoreBackend)
	}

	ttl, err := time.ParseDuration(getEnv("STORE_CACHE_TTL", "30s"))
	if err != nil || ttl < 0 {
		return nil, fmt.Errorf("STORE_CACHE_TTL is not a valid duration")
	}
	cfg.StoreCacheTTL = ttl

	split, err := strconv.ParseBool(getEnv("EXPORT_SPLIT_BY_BRANCH", "true"))
	if err != nil {
		return nil, fmt.Errorf("EXPORT_SPLIT_BY_BRANCH must be a boolean")
	}
	cfg.SplitByBranch = split

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Africa/Mogadishu"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.Catalog, err = LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Warnings lists settings that are fine for development only.
func (c *Config) Warnings() []string {
	var out []string
	if c.StoreBackend == StoreBackendPostgres && c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		out = append(out, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	if c.StoreBackend == StoreBackendMemory {
		out = append(out, "STORE_BACKEND=memory keeps records in process memory only")
	}
	if os.Getenv("MANAGER_PASSWORD") != "" {
		out = append(out, "MANAGER_PASSWORD is set in plain text, prefer MANAGER_PASSWORD_HASH")
	}
	return out
}

// AuditEnabled: the audit log lives next to the records in Postgres.
func (c *Config) AuditEnabled() bool {
	return c.StoreBackend == StoreBackendPostgres
}

func managerPasswordHash() (string, error) {
	if h := os.Getenv("MANAGER_PASSWORD_HASH"); h != "" {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return "", fmt.Errorf("MANAGER_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
		return h, nil
	}
	plain := os.Getenv("MANAGER_PASSWORD")
	if plain == "" {
		return "", fmt.Errorf("MANAGER_PASSWORD_HASH or MANAGER_PASSWORD is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash manager password: %w", err)
	}
	return string(h), nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
