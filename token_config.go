package auth

import (
	"encoding/base64"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
)

// Supported HMAC signing methods
const (
	SigningMethodHS256 = "HS256"
	SigningMethodHS384 = "HS384"
	SigningMethodHS512 = "HS512"
)

// TokenValidationParams are the raw parameters as supplied by a
// configuration source.
type TokenValidationParams struct {
	// Secret is base64 encoded symmetric key material
	Secret   string `mapstructure:"secret" json:"secret"`
	Issuer   string `mapstructure:"issuer" json:"issuer"`
	Audience string `mapstructure:"audience" json:"audience"`
	// SigningMethod restricts accepted tokens to one HMAC method. Empty
	// accepts any of HS256, HS384 and HS512.
	SigningMethod string `mapstructure:"signing_method" json:"signing_method"`
}

// Validate checks the parameters
func (p TokenValidationParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Secret, validation.Required, is.Base64),
		validation.Field(&p.Issuer, validation.Required),
		validation.Field(&p.Audience, validation.Required),
		validation.Field(&p.SigningMethod, validation.In(
			SigningMethodHS256,
			SigningMethodHS384,
			SigningMethodHS512,
		)),
	)
}

// TokenValidationConfig holds the issuer, audience and key used to verify
// bearer tokens. It is immutable once built and safe for concurrent use.
type TokenValidationConfig struct {
	key           []byte
	issuer        string
	audience      string
	signingMethod string
}

// NewTokenValidationConfig validates params and decodes the secret
func NewTokenValidationConfig(params TokenValidationParams) (*TokenValidationConfig, error) {
	if err := params.Validate(); err != nil {
		return nil, newKindError(ErrInvalidConfig, err, nil)
	}

	key, err := base64.StdEncoding.DecodeString(params.Secret)
	if err != nil {
		return nil, newKindError(ErrInvalidConfig, err, map[string]any{"field": "secret"})
	}
	if len(key) == 0 {
		return nil, newKindError(ErrInvalidConfig, nil, map[string]any{"field": "secret"})
	}

	return &TokenValidationConfig{
		key:           key,
		issuer:        params.Issuer,
		audience:      params.Audience,
		signingMethod: params.SigningMethod,
	}, nil
}

// MustTokenValidationConfig is NewTokenValidationConfig that panics on error
func MustTokenValidationConfig(params TokenValidationParams) *TokenValidationConfig {
	cfg, err := NewTokenValidationConfig(params)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Issuer returns the expected iss claim
func (c *TokenValidationConfig) Issuer() string {
	return c.issuer
}

// Audience returns the expected aud claim
func (c *TokenValidationConfig) Audience() string {
	return c.audience
}

// SigningMethod returns the configured method, empty when any HMAC method
// is accepted
func (c *TokenValidationConfig) SigningMethod() string {
	return c.signingMethod
}

// SigningKey returns a copy of the decoded key
func (c *TokenValidationConfig) SigningKey() []byte {
	out := make([]byte, len(c.key))
	copy(out, c.key)
	return out
}

// ValidMethods lists the alg header values the verifier accepts
func (c *TokenValidationConfig) ValidMethods() []string {
	if c.signingMethod != "" {
		return []string{c.signingMethod}
	}
	return []string{SigningMethodHS256, SigningMethodHS384, SigningMethodHS512}
}

func (c *TokenValidationConfig) jwtSigningMethod() jwt.SigningMethod {
	switch c.signingMethod {
	case SigningMethodHS384:
		return jwt.SigningMethodHS384
	case SigningMethodHS512:
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

var defaultConfig atomic.Pointer[TokenValidationConfig]

// InitTokenValidationConfig installs the process wide config. Only the
// first non-nil call has an effect; the installed config is returned.
func InitTokenValidationConfig(cfg *TokenValidationConfig) *TokenValidationConfig {
	if cfg != nil {
		defaultConfig.CompareAndSwap(nil, cfg)
	}
	return defaultConfig.Load()
}

// DefaultTokenValidationConfig returns the process wide config, nil until
// InitTokenValidationConfig runs.
func DefaultTokenValidationConfig() *TokenValidationConfig {
	return defaultConfig.Load()
}
