package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates HMAC signed bearer tokens against a
// TokenValidationConfig. It keeps no state between calls.
type TokenVerifier struct {
	config *TokenValidationConfig
	now    func() time.Time
	logger Logger
}

var _ AccessTokenVerifier = (*TokenVerifier)(nil)

// VerifierOption customizes a TokenVerifier
type VerifierOption func(*TokenVerifier)

// WithVerifierClock injects a custom clock (useful for tests)
func WithVerifierClock(clock func() time.Time) VerifierOption {
	return func(v *TokenVerifier) {
		if clock != nil {
			v.now = clock
		}
	}
}

// WithVerifierLogger sets the logger used to report rejected tokens
func WithVerifierLogger(logger Logger) VerifierOption {
	return func(v *TokenVerifier) {
		v.logger = normalizeLogger(logger)
	}
}

// NewTokenVerifier returns a verifier bound to cfg
func NewTokenVerifier(cfg *TokenValidationConfig, opts ...VerifierOption) *TokenVerifier {
	v := &TokenVerifier{
		config: cfg,
		now:    time.Now,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate parses tokenString and checks, in order: exp is present, iss and
// aud match the config, the signature verifies and the current time lies
// within [nbf, exp] with no leeway.
func (v *TokenVerifier) Validate(tokenString string) (*JWTClaims, error) {
	if v.config == nil {
		return nil, newKindError(ErrInvalidConfig, nil, map[string]any{"reason": "verifier has no config"})
	}
	if tokenString == "" {
		return nil, newKindError(ErrMalformedToken, nil, map[string]any{"reason": "empty token"})
	}

	unverified := &JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, unverified); err != nil {
		return nil, newKindError(ErrMalformedToken, err, nil)
	}

	if unverified.ExpiresAt == nil {
		return nil, validationError("missing exp claim", nil)
	}
	if unverified.Issuer != v.config.Issuer() {
		return nil, validationError("issuer mismatch", nil)
	}
	if !slices.Contains(unverified.Audience, v.config.Audience()) {
		return nil, validationError("audience mismatch", nil)
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods(v.config.ValidMethods()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.config.Issuer()),
		jwt.WithAudience(v.config.Audience()),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}
	if !token.Valid {
		return nil, validationError("token is not valid", nil)
	}

	return claims, nil
}

// Verify reports whether tokenString is valid. Every failure, including a
// panic inside validation, yields false; callers cannot tell why.
func (v *TokenVerifier) Verify(tokenString string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("token verification panicked", "panic", r)
			ok = false
		}
	}()

	if _, err := v.Validate(tokenString); err != nil {
		v.logger.Debug("token rejected", "kind", ErrorKind(err), "error", err)
		return false
	}
	return true
}

func (v *TokenVerifier) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return v.config.SigningKey(), nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newKindError(ErrMalformedToken, err, nil)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newKindError(ErrTokenExpired, err, nil)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return validationError("token not valid yet", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return validationError("signature", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return validationError("issuer mismatch", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return validationError("audience mismatch", err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return validationError("required claim missing", err)
	default:
		return validationError("invalid token", err)
	}
}

func validationError(reason string, cause error) error {
	return newKindError(ErrValidation, cause, map[string]any{"reason": reason})
}
