package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeEmptyInput         = "EMPTY_INPUT"
	TextCodeDecode             = "CREDENTIAL_DECODE_FAILED"
	TextCodeMismatchCredential = "CREDENTIAL_MISMATCH"
	TextCodeMalformedToken     = "TOKEN_MALFORMED"
	TextCodeTokenValidation    = "TOKEN_VALIDATION_FAILED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodePersistence        = "PERSISTENCE_FAILED"
	TextCodeInvalidConfig      = "INVALID_TOKEN_CONFIG"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM_MUTATION"
	TextCodeUnknown            = "UNKNOWN"
)

// ErrEmptyInput is returned when a required string argument is empty
var ErrEmptyInput = goerrors.New("required input is empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyInput).
	WithCode(goerrors.CodeBadRequest)

// ErrDecode is returned when a stored credential cannot be decoded
var ErrDecode = goerrors.New("unable to decode credential", goerrors.CategoryBadInput).
	WithTextCode(TextCodeDecode)

// ErrMismatchedCredential is returned when a candidate password does not
// match the stored credential
var ErrMismatchedCredential = goerrors.New("credential does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeMismatchCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrMalformedToken is returned when a bearer token has no valid JWS shape
var ErrMalformedToken = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeMalformedToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrValidation is returned when a token parses but fails a claim or
// signature check
var ErrValidation = goerrors.New("token failed validation", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenValidation).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is the validation failure for tokens past their exp claim
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrPersistence is returned when the store rejects a write
var ErrPersistence = goerrors.New("store rejected write", goerrors.CategoryInternal).
	WithTextCode(TextCodePersistence)

// ErrInvalidConfig is returned when token validation parameters are unusable
var ErrInvalidConfig = goerrors.New("invalid token validation config", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidConfig).
	WithCode(goerrors.CodeBadRequest)

// ErrImmutableClaimMutation is returned when a ClaimsDecorator changes a
// registered or identity claim
var ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim)

// newKindError builds a fresh error of the same kind as base, optionally
// wrapping cause and attaching metadata.
func newKindError(base *goerrors.Error, cause error, meta map[string]any) error {
	var e *goerrors.Error
	if cause != nil {
		e = goerrors.Wrap(cause, base.Category, base.Message)
	} else {
		e = goerrors.New(base.Message, base.Category)
	}
	e = e.WithTextCode(base.TextCode)
	if len(meta) > 0 {
		e = e.WithMetadata(meta)
	}
	return e
}

// ErrorKind returns the text code of the first package error found in the
// chain, or TextCodeUnknown.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return TextCodeUnknown
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if ErrorKind(err) == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if ErrorKind(err) == TextCodeMalformedToken {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}
