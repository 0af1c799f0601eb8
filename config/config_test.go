package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/hcsuite/go-auth"
	"github.com/hcsuite/go-auth/config"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("config-test-signing-key"))

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, auth.DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.PingTimeout)
	assert.False(t, cfg.Database.Debug)
	assert.False(t, cfg.Credentials.CaseInsensitive)

	_, err = cfg.TokenValidationConfig()
	assert.Equal(t, auth.TextCodeInvalidConfig, auth.ErrorKind(err))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	content := `
jwt:
  secret: ` + testSecret + `
  issuer: https://issuer.example.com
  audience: accounts-api
  signing_method: HS384
token_ttl: 15m
database:
  dsn: "file::memory:"
  ping_timeout: 2s
credentials:
  case_insensitive: true
  legacy: true
  bcrypt_cost: 4
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 2*time.Second, cfg.Database.PingTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Credentials.CaseInsensitive)
	assert.True(t, cfg.Credentials.Legacy)
	assert.Equal(t, 4, cfg.Credentials.BcryptCost)
	assert.Len(t, cfg.CodecOptions(), 3)

	tvc, err := cfg.TokenValidationConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://issuer.example.com", tvc.Issuer())
	assert.Equal(t, "accounts-api", tvc.Audience())
	assert.Equal(t, auth.SigningMethodHS384, tvc.SigningMethod())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  issuer: from-file\n"), 0o600))

	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("AUTH_JWT_ISSUER", "from-env")
	t.Setenv("AUTH_JWT_AUDIENCE", "accounts-api")
	t.Setenv("AUTH_TOKEN_TTL", "30m")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)

	_, err = cfg.TokenValidationConfig()
	assert.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_JWT_AUDIENCE=from-dotenv\n"), 0o600))

	// t.Setenv registers cleanup for the variable godotenv exports
	t.Setenv("AUTH_JWT_AUDIENCE", "")
	require.NoError(t, os.Unsetenv("AUTH_JWT_AUDIENCE"))

	require.NoError(t, config.LoadEnvFile(path, true))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWT.Audience)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	assert.NoError(t, config.LoadEnvFile(missing, false))
	assert.Error(t, config.LoadEnvFile(missing, true))
}
