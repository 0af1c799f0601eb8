package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/hcsuite/go-auth"
)

var (
	testSigningKey = []byte("test-signing-key-0123456789abcdef")
	testIssuer     = "https://issuer.example.com"
	testAudience   = "accounts-api"
	testNow        = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
)

func testTokenConfig(t *testing.T) *auth.TokenValidationConfig {
	t.Helper()
	cfg, err := auth.NewTokenValidationConfig(auth.TokenValidationParams{
		Secret:   base64.StdEncoding.EncodeToString(testSigningKey),
		Issuer:   testIssuer,
		Audience: testAudience,
	})
	require.NoError(t, err)
	return cfg
}

func testClaims(now time.Time) *auth.JWTClaims {
	return &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "u1",
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:      "u1",
		RoleList: []string{auth.RoleAdmin},
	}
}

func signTestToken(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, key any) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func TestTokenVerifier_Validate(t *testing.T) {
	cfg := testTokenConfig(t)
	verifier := auth.NewTokenVerifier(cfg,
		auth.WithVerifierClock(fixedClock(testNow)),
		auth.WithVerifierLogger(auth.NopLogger()),
	)

	t.Run("valid token", func(t *testing.T) {
		token := signTestToken(t, jwt.SigningMethodHS256, testClaims(testNow), testSigningKey)

		claims, err := verifier.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject())
		assert.Equal(t, "u1", claims.UserID())
		assert.True(t, claims.HasRole(auth.RoleAdmin))
		assert.True(t, verifier.Verify(token))
	})

	t.Run("HS512 accepted when no method is pinned", func(t *testing.T) {
		token := signTestToken(t, jwt.SigningMethodHS512, testClaims(testNow), testSigningKey)
		assert.True(t, verifier.Verify(token))
	})

	tests := []struct {
		name     string
		token    func(t *testing.T) string
		wantKind string
	}{
		{
			name: "expired one second ago",
			token: func(t *testing.T) string {
				c := testClaims(testNow.Add(-time.Hour))
				c.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Second))
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenExpired,
		},
		{
			name: "missing exp",
			token: func(t *testing.T) string {
				c := testClaims(testNow)
				c.ExpiresAt = nil
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "missing issuer",
			token: func(t *testing.T) string {
				c := testClaims(testNow)
				c.Issuer = ""
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := testClaims(testNow)
				c.Issuer = "https://evil.example.com"
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "missing audience",
			token: func(t *testing.T) string {
				c := testClaims(testNow)
				c.Audience = nil
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				c := testClaims(testNow)
				c.Audience = jwt.ClaimStrings{"other-api"}
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signTestToken(t, jwt.SigningMethodHS256, testClaims(testNow), []byte("another-key"))
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "alg none",
			token: func(t *testing.T) string {
				return signTestToken(t, jwt.SigningMethodNone, testClaims(testNow), jwt.UnsafeAllowNoneSignatureType)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				c := testClaims(testNow)
				c.NotBefore = jwt.NewNumericDate(testNow.Add(time.Minute))
				return signTestToken(t, jwt.SigningMethodHS256, c, testSigningKey)
			},
			wantKind: auth.TextCodeTokenValidation,
		},
		{
			name:     "empty",
			token:    func(t *testing.T) string { return "" },
			wantKind: auth.TextCodeMalformedToken,
		},
		{
			name:     "not a jwt",
			token:    func(t *testing.T) string { return "not-a-jwt" },
			wantKind: auth.TextCodeMalformedToken,
		},
		{
			name:     "garbage segments",
			token:    func(t *testing.T) string { return "a.b.c" },
			wantKind: auth.TextCodeMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token(t)

			_, err := verifier.Validate(token)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, auth.ErrorKind(err))
			assert.False(t, verifier.Verify(token))
		})
	}
}

func TestTokenVerifier_MissingAlgHeader(t *testing.T) {
	verifier := auth.NewTokenVerifier(testTokenConfig(t),
		auth.WithVerifierClock(fixedClock(testNow)),
		auth.WithVerifierLogger(auth.NopLogger()),
	)

	valid := signTestToken(t, jwt.SigningMethodHS256, testClaims(testNow), testSigningKey)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"typ":"JWT"}`))
	parts := strings.Split(valid, ".")
	token := header + "." + parts[1] + "." + parts[2]

	_, err := verifier.Validate(token)
	assert.Error(t, err)
	assert.False(t, verifier.Verify(token))
}

func TestTokenVerifier_PinnedSigningMethod(t *testing.T) {
	cfg, err := auth.NewTokenValidationConfig(auth.TokenValidationParams{
		Secret:        base64.StdEncoding.EncodeToString(testSigningKey),
		Issuer:        testIssuer,
		Audience:      testAudience,
		SigningMethod: auth.SigningMethodHS256,
	})
	require.NoError(t, err)

	verifier := auth.NewTokenVerifier(cfg,
		auth.WithVerifierClock(fixedClock(testNow)),
		auth.WithVerifierLogger(auth.NopLogger()),
	)

	assert.True(t, verifier.Verify(signTestToken(t, jwt.SigningMethodHS256, testClaims(testNow), testSigningKey)))
	assert.False(t, verifier.Verify(signTestToken(t, jwt.SigningMethodHS384, testClaims(testNow), testSigningKey)))
}

func TestTokenVerifier_NilConfig(t *testing.T) {
	verifier := auth.NewTokenVerifier(nil, auth.WithVerifierLogger(auth.NopLogger()))

	_, err := verifier.Validate("a.b.c")
	assert.Equal(t, auth.TextCodeInvalidConfig, auth.ErrorKind(err))
	assert.False(t, verifier.Verify("a.b.c"))
}
