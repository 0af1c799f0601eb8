package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of access tokens when none is configured
const DefaultTokenTTL = time.Hour

// TokenService mints access tokens that TokenVerifier accepts with the same
// config.
type TokenService struct {
	config    *TokenValidationConfig
	ttl       time.Duration
	now       func() time.Time
	logger    Logger
	decorator ClaimsDecorator
	verifier  *TokenVerifier
}

// TokenServiceOption customizes a TokenService
type TokenServiceOption func(*TokenService)

// WithTokenClock injects a custom clock (useful for tests)
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithClaimsDecorator lets callers add roles or metadata to claims before
// signing. Changes to registered or identity claims fail the Generate call.
func WithClaimsDecorator(decorator ClaimsDecorator) TokenServiceOption {
	return func(ts *TokenService) {
		ts.decorator = normalizeClaimsDecorator(decorator)
	}
}

// NewTokenService creates a new TokenService. A non-positive ttl falls back
// to DefaultTokenTTL.
func NewTokenService(cfg *TokenValidationConfig, ttl time.Duration, opts ...TokenServiceOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	ts := &TokenService{
		config:    cfg,
		ttl:       ttl,
		now:       time.Now,
		logger:    defLogger{},
		decorator: noopClaimsDecorator{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	ts.verifier = NewTokenVerifier(cfg, WithVerifierClock(ts.now), WithVerifierLogger(ts.logger))
	return ts
}

// Generate creates a signed access token for account
func (ts *TokenService) Generate(ctx context.Context, account *Account) (string, *JWTClaims, error) {
	if account == nil {
		return "", nil, goerrors.New("account is required", goerrors.CategoryBadInput)
	}
	if ts.config == nil {
		return "", nil, newKindError(ErrInvalidConfig, nil, map[string]any{"reason": "token service has no config"})
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.config.Issuer(),
			Subject:   account.ID.String(),
			Audience:  jwt.ClaimStrings{ts.config.Audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      account.ID.String(),
		RoleList: RoleNames(account.Roles),
	}

	snapshot := captureImmutableClaims(claims)
	if err := ts.decorator.Decorate(ctx, account, claims); err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "claims decorator failed")
	}
	if err := snapshot.validate(claims); err != nil {
		ts.logger.Error("claims decorator mutated immutable claim", "error", err)
		return "", nil, err
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// SignClaims signs arbitrary claims with the configured key and method
func (ts *TokenService) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}
	if ts.config == nil {
		return "", newKindError(ErrInvalidConfig, nil, map[string]any{"reason": "token service has no config"})
	}

	token := jwt.NewWithClaims(ts.config.jwtSigningMethod(), claims)

	signedString, err := token.SignedString(ts.config.SigningKey())
	if err != nil {
		ts.logger.Error("failed to sign token", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenService) Validate(tokenString string) (*JWTClaims, error) {
	return ts.verifier.Validate(tokenString)
}
