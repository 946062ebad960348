package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmanager/backend/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(envFrom(map[string]string{"JWT_SECRET": testSecret}))
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, "TaskManagerAPI", cfg.JWTIssuer)
	assert.Equal(t, "TaskManagerApp", cfg.JWTAudience)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestFromEnv_MissingSecret(t *testing.T) {
	_, err := config.FromEnv(envFrom(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnv_ShortSecret(t *testing.T) {
	_, err := config.FromEnv(envFrom(map[string]string{"JWT_SECRET": "short"}))
	require.Error(t, err)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := config.FromEnv(envFrom(map[string]string{
		"JWT_SECRET":           testSecret,
		"PORT":                 "8080",
		"JWT_TTL":              "1h",
		"BCRYPT_COST":          "12",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		"AUTH_RATE_LIMIT":      "2.5",
		"AUTH_RATE_BURST":      "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.InDelta(t, 2.5, cfg.AuthRateLimit, 0.0001)
	assert.Equal(t, 3, cfg.AuthRateBurst)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad ttl":      {"JWT_TTL": "seven days"},
		"negative ttl": {"JWT_TTL": "-1h"},
		"bad cost":     {"BCRYPT_COST": "abc"},
		"cost range":   {"BCRYPT_COST": "40"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			env["JWT_SECRET"] = testSecret
			_, err := config.FromEnv(envFrom(env))
			require.Error(t, err)
		})
	}
}

func TestFromEnv_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	body := strings.Join([]string{
		"port: \"9090\"",
		"jwt_secret: " + testSecret,
		"jwt_issuer: file-issuer",
		"jwt_ttl: 30m",
		"cors_allowed_origins:",
		"  - https://app.example",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.FromEnv(envFrom(map[string]string{
		"CONFIG_FILE": path,
		"JWT_ISSUER":  "env-issuer",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "env-issuer", cfg.JWTIssuer, "environment wins over the file")
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
}

func TestFromEnv_MissingFile(t *testing.T) {
	_, err := config.FromEnv(envFrom(map[string]string{
		"CONFIG_FILE": filepath.Join(t.TempDir(), "nope.yaml"),
		"JWT_SECRET":  testSecret,
	}))
	require.Error(t, err)
}
