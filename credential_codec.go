package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCodec stores credentials as salted bcrypt hashes and compares
// candidates exactly. It is the default codec.
type BcryptCodec struct {
	cost     int
	foldCase bool
	legacy   bool
}

var _ CredentialCodec = (*BcryptCodec)(nil)

// CodecOption customizes a BcryptCodec
type CodecOption func(*BcryptCodec)

// WithBcryptCost overrides the bcrypt work factor. Values outside
// bcrypt's accepted range are ignored.
func WithBcryptCost(cost int) CodecOption {
	return func(c *BcryptCodec) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			c.cost = cost
		}
	}
}

// WithCaseInsensitiveMatch keeps the legacy contract where passwords match
// regardless of letter case. Passwords are lower cased before hashing and
// before comparison, so hashes created with and without the flag are not
// interchangeable.
func WithCaseInsensitiveMatch(enabled bool) CodecOption {
	return func(c *BcryptCodec) {
		c.foldCase = enabled
	}
}

// WithLegacyCredentials lets Verify accept stored values that are not bcrypt
// hashes by decoding them with Base64Codec.
func WithLegacyCredentials(enabled bool) CodecOption {
	return func(c *BcryptCodec) {
		c.legacy = enabled
	}
}

// NewBcryptCodec returns the default credential codec
func NewBcryptCodec(opts ...CodecOption) *BcryptCodec {
	c := &BcryptCodec{cost: passwordHashCost()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Encode hashes the password
func (c *BcryptCodec) Encode(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyInput
	}
	return hashPasswordWithCost(c.fold(password), c.cost)
}

// Verify checks candidate against the account's stored credential
func (c *BcryptCodec) Verify(account *Account, candidate string) error {
	if account == nil {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "account"})
	}
	if candidate == "" {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "password"})
	}
	if account.PasswordHash == "" {
		return newKindError(ErrDecode, nil, map[string]any{"reason": "no stored credential"})
	}

	if isBcryptHash(account.PasswordHash) {
		return ComparePasswordAndHash(c.fold(candidate), account.PasswordHash)
	}

	if c.legacy {
		legacy := Base64Codec{CaseSensitive: !c.foldCase}
		return legacy.Verify(account, candidate)
	}

	return newKindError(ErrDecode, nil, map[string]any{"reason": "stored credential is not a bcrypt hash"})
}

// Matches reports whether candidate matches the stored credential. It
// never panics and returns false on any failure.
func (c *BcryptCodec) Matches(account *Account, candidate string) bool {
	return c.Verify(account, candidate) == nil
}

func (c *BcryptCodec) fold(s string) string {
	if c.foldCase {
		return strings.ToLower(s)
	}
	return s
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// Base64Codec is the reversible legacy encoding: standard base64 over the
// UTF-8 bytes of the password. It is not a hash. Use it only to read
// credentials written by the legacy system.
//
// The zero value compares case-insensitively, which is the legacy contract.
type Base64Codec struct {
	CaseSensitive bool
}

var _ CredentialCodec = Base64Codec{}

// Encode returns the base64 form of password
func (Base64Codec) Encode(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyInput
	}
	return base64.StdEncoding.EncodeToString([]byte(password)), nil
}

// Decode is the inverse of Encode
func (Base64Codec) Decode(encoded string) (string, error) {
	if encoded == "" {
		return "", newKindError(ErrDecode, nil, map[string]any{"reason": "empty credential"})
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", newKindError(ErrDecode, err, nil)
	}
	if !utf8.Valid(raw) {
		return "", newKindError(ErrDecode, nil, map[string]any{"reason": "credential is not valid UTF-8"})
	}
	return string(raw), nil
}

// Verify decodes the stored credential and compares it with candidate
func (b Base64Codec) Verify(account *Account, candidate string) error {
	if account == nil {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "account"})
	}
	if candidate == "" {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "password"})
	}

	password, err := b.Decode(account.PasswordHash)
	if err != nil {
		return err
	}
	if password == "" {
		return newKindError(ErrDecode, nil, map[string]any{"reason": "empty credential"})
	}

	if b.CaseSensitive {
		if subtle.ConstantTimeCompare([]byte(password), []byte(candidate)) != 1 {
			return ErrMismatchedCredential
		}
		return nil
	}

	if !strings.EqualFold(password, candidate) {
		return ErrMismatchedCredential
	}
	return nil
}

// Matches reports whether candidate matches the stored credential
func (b Base64Codec) Matches(account *Account, candidate string) bool {
	return b.Verify(account, candidate) == nil
}
