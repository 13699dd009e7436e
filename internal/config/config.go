package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-users-api/internal/model"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration

	LogFormat string
	LogLevel  string

	StoreDriver      string
	DatabaseURL      string
	DBMaxConns       int32
	DBMinConns       int32
	DBConnectTries   uint64
	DBConnectBackoff time.Duration

	JWTSecret     string
	JWTIssuer     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	PasswordHasher string
	Argon2Time     uint32
	Argon2MemoryKB uint32
	Argon2Threads  uint8
	BcryptCost     int

	RefreshCookieName   string
	RefreshCookieSecure bool
	RefreshCookiePath   string

	OwnershipBypassRoles []model.Role
	TokenCleanupInterval time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:       int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:       int32(getInt("DB_MIN_CONNS", 1)),
		DBConnectTries:   uint64(getInt("DB_CONNECT_RETRIES", 5)),
		DBConnectBackoff: getDuration("DB_CONNECT_BACKOFF", 500*time.Millisecond),

		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     getEnv("JWT_ISSUER", "go-users-api"),
		JWTAccessTTL:  getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL: getDuration("JWT_REFRESH_TTL", 168*time.Hour),

		PasswordHasher: strings.ToLower(getEnv("PASSWORD_HASHER", HasherArgon2id)),
		Argon2Time:     uint32(getInt("ARGON2_TIME", 1)),
		Argon2MemoryKB: uint32(getInt("ARGON2_MEMORY_KB", 64*1024)),
		Argon2Threads:  uint8(getInt("ARGON2_THREADS", 4)),
		BcryptCost:     getInt("BCRYPT_COST", 12),

		RefreshCookieName:   getEnv("REFRESH_COOKIE_NAME", "token"),
		RefreshCookieSecure: getBool("REFRESH_COOKIE_SECURE", true),
		RefreshCookiePath:   getEnv("REFRESH_COOKIE_PATH", "/api/v1/auth"),

		OwnershipBypassRoles: parseRoles(getEnv("OWNERSHIP_BYPASS_ROLES", string(model.RoleAdmin))),
		TokenCleanupInterval: getDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}

	if c.PasswordHasher != HasherArgon2id && c.PasswordHasher != HasherBcrypt {
		return fmt.Errorf("PASSWORD_HASHER must be %q or %q", HasherArgon2id, HasherBcrypt)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= c.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must exceed a positive JWT_ACCESS_TTL")
	}

	if c.RefreshCookieName == "" {
		return fmt.Errorf("REFRESH_COOKIE_NAME cannot be empty")
	}

	for _, role := range c.OwnershipBypassRoles {
		if !role.Valid() {
			return fmt.Errorf("OWNERSHIP_BYPASS_ROLES contains unknown role %q", role)
		}
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func parseRoles(raw string) []model.Role {
	parts := splitCSV(raw)
	roles := make([]model.Role, 0, len(parts))
	for _, part := range parts {
		if strings.EqualFold(part, "none") {
			continue
		}
		roles = append(roles, model.Role(strings.ToLower(part)))
	}
	return roles
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
