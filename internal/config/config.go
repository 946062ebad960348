// Package config builds the process-wide configuration once at startup.
//
// Values come from, in increasing priority: built-in defaults, an optional YAML
// file named by CONFIG_FILE, and environment variables (.env.local is loaded
// into the environment first when present). The returned Config is a plain
// value; nothing in the process mutates it after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// MinSecretLength is the minimum JWT signing secret length in bytes (HS256 key size).
const MinSecretLength = 32

type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	BcryptCost int

	AllowedOrigins []string

	// AuthRateLimit is the sustained requests/second allowed per client IP on
	// the credential endpoints; AuthRateBurst is the bucket size.
	AuthRateLimit float64
	AuthRateBurst int

	LogLevel string
}

// fileConfig mirrors Config for the YAML file. Durations are strings ("168h").
type fileConfig struct {
	Port           string   `yaml:"port"`
	DatabaseURL    string   `yaml:"database_url"`
	JWTSecret      string   `yaml:"jwt_secret"`
	JWTIssuer      string   `yaml:"jwt_issuer"`
	JWTAudience    string   `yaml:"jwt_audience"`
	JWTTTL         string   `yaml:"jwt_ttl"`
	BcryptCost     int      `yaml:"bcrypt_cost"`
	AllowedOrigins []string `yaml:"cors_allowed_origins"`
	AuthRateLimit  float64  `yaml:"auth_rate_limit"`
	AuthRateBurst  int      `yaml:"auth_rate_burst"`
	LogLevel       string   `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		Port:           "5050",
		JWTIssuer:      "TaskManagerAPI",
		JWTAudience:    "TaskManagerApp",
		JWTTTL:         7 * 24 * time.Hour,
		BcryptCost:     10,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		AuthRateLimit:  5,
		AuthRateBurst:  10,
		LogLevel:       "info",
	}
}

// Load reads .env.local (if present) into the environment and builds the Config.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.JWTSecret, fc.JWTSecret)
	setString(&c.JWTIssuer, fc.JWTIssuer)
	setString(&c.JWTAudience, fc.JWTAudience)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.JWTTTL != "" {
		d, err := time.ParseDuration(fc.JWTTTL)
		if err != nil {
			return fmt.Errorf("config: jwt_ttl: %w", err)
		}
		c.JWTTTL = d
	}
	if fc.BcryptCost != 0 {
		c.BcryptCost = fc.BcryptCost
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.AuthRateLimit != 0 {
		c.AuthRateLimit = fc.AuthRateLimit
	}
	if fc.AuthRateBurst != 0 {
		c.AuthRateBurst = fc.AuthRateBurst
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	setString(&c.Port, getenv("PORT"))
	setString(&c.DatabaseURL, getenv("DATABASE_URL"))
	setString(&c.JWTSecret, getenv("JWT_SECRET"))
	setString(&c.JWTIssuer, getenv("JWT_ISSUER"))
	setString(&c.JWTAudience, getenv("JWT_AUDIENCE"))
	setString(&c.LogLevel, getenv("LOG_LEVEL"))

	if v := strings.TrimSpace(getenv("JWT_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: JWT_TTL: %w", err)
		}
		c.JWTTTL = d
	}
	if v := strings.TrimSpace(getenv("BCRYPT_COST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BCRYPT_COST: %w", err)
		}
		c.BcryptCost = n
	}
	if v := strings.TrimSpace(getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(getenv("AUTH_RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: AUTH_RATE_LIMIT: %w", err)
		}
		c.AuthRateLimit = f
	}
	if v := strings.TrimSpace(getenv("AUTH_RATE_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: AUTH_RATE_BURST: %w", err)
		}
		c.AuthRateBurst = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return fmt.Errorf("config: JWT_ISSUER and JWT_AUDIENCE must be set")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("config: JWT_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.AuthRateLimit < 0 || c.AuthRateBurst < 0 {
		return fmt.Errorf("config: AUTH_RATE_LIMIT and AUTH_RATE_BURST must not be negative")
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
