// Package config loads the startup configuration: token validation
// parameters, the database DSN and credential codec flags. Values come from
// defaults, an optional YAML/JSON/TOML file and AUTH_ prefixed environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	auth "github.com/hcsuite/go-auth"
)

// EnvPrefix is the prefix of environment overrides, e.g. AUTH_JWT_SECRET
const EnvPrefix = "AUTH"

// Config is the runtime configuration
type Config struct {
	JWT         auth.TokenValidationParams `mapstructure:"jwt"`
	TokenTTL    time.Duration              `mapstructure:"token_ttl"`
	Database    Database                   `mapstructure:"database"`
	Credentials Credentials                `mapstructure:"credentials"`
	Log         Log                        `mapstructure:"log"`
}

// Database holds persistence settings
type Database struct {
	DSN         string        `mapstructure:"dsn"`
	Debug       bool          `mapstructure:"debug"`
	PingTimeout time.Duration `mapstructure:"ping_timeout"`
}

// Credentials holds credential codec flags
type Credentials struct {
	CaseInsensitive bool `mapstructure:"case_insensitive"`
	Legacy          bool `mapstructure:"legacy"`
	BcryptCost      int  `mapstructure:"bcrypt_cost"`
}

// Log holds logger settings
type Log struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.signing_method", "")
	v.SetDefault("token_ttl", auth.DefaultTokenTTL)
	v.SetDefault("database.dsn", "file:auth.db?cache=shared")
	v.SetDefault("database.debug", false)
	v.SetDefault("database.ping_timeout", 5*time.Second)
	v.SetDefault("credentials.case_insensitive", false)
	v.SetDefault("credentials.legacy", false)
	v.SetDefault("credentials.bcrypt_cost", 0)
	v.SetDefault("log.level", "info")
}

// Load reads configuration from path (optional) and the environment
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile exports the variables in a dotenv file so Load sees them.
// Variables already set in the environment win. A missing file is not an
// error unless it was named explicitly.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// TokenValidationConfig builds the immutable token validation config
func (c *Config) TokenValidationConfig() (*auth.TokenValidationConfig, error) {
	return auth.NewTokenValidationConfig(c.JWT)
}

// CodecOptions translates the credential flags into codec options
func (c *Config) CodecOptions() []auth.CodecOption {
	opts := []auth.CodecOption{
		auth.WithCaseInsensitiveMatch(c.Credentials.CaseInsensitive),
		auth.WithLegacyCredentials(c.Credentials.Legacy),
	}
	if c.Credentials.BcryptCost > 0 {
		opts = append(opts, auth.WithBcryptCost(c.Credentials.BcryptCost))
	}
	return opts
}
