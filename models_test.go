package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestAccountAddRoleDedupes(t *testing.T) {
	a := &Account{}

	if !a.AddRole(NewRole(RoleAdmin)) {
		t.Fatalf("expected first add to succeed")
	}
	if a.AddRole(NewRole(RoleAdmin)) {
		t.Fatalf("expected duplicate add to be rejected")
	}
	if a.AddRole(nil) {
		t.Fatalf("expected nil role to be rejected")
	}
	if a.AddRole(&Role{}) {
		t.Fatalf("expected unnamed role to be rejected")
	}
	if len(a.Roles) != 1 || !a.HasRole(RoleAdmin) {
		t.Fatalf("expected exactly one admin role, got %v", RoleNames(a.Roles))
	}

	a.removeRole(RoleAdmin)
	if a.HasRole(RoleAdmin) {
		t.Fatalf("expected role to be removed")
	}
}

func TestAccountAddSessionTokenKeyedByHash(t *testing.T) {
	a := &Account{ID: uuid.New()}

	first := NewSessionToken("token-a", nil)
	if !a.AddSessionToken(first) {
		t.Fatalf("expected token to be added")
	}
	if first.AccountID != a.ID {
		t.Fatalf("expected account id to be stamped on token")
	}
	if a.AddSessionToken(NewSessionToken("token-a", nil)) {
		t.Fatalf("expected same raw token to be rejected")
	}
	if !a.AddSessionToken(NewSessionToken("token-b", nil)) {
		t.Fatalf("expected second token to be added")
	}
	if a.AddSessionToken(&SessionToken{}) {
		t.Fatalf("expected token without hash to be rejected")
	}

	a.removeSessionToken(HashToken("token-a"))
	if len(a.SessionTokens) != 1 {
		t.Fatalf("expected one token left, got %d", len(a.SessionTokens))
	}
}

func TestNewSessionToken(t *testing.T) {
	if NewSessionToken("", nil) != nil {
		t.Fatalf("expected nil token for empty raw value")
	}

	issued := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	claims := &JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "jti-1",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}}

	token := NewSessionToken("raw", claims)
	if token.TokenHash != HashToken("raw") || token.TokenHash == "raw" {
		t.Fatalf("expected token hash to be a digest, got %q", token.TokenHash)
	}
	if token.TokenID != "jti-1" {
		t.Fatalf("expected jti to be copied, got %q", token.TokenID)
	}
	if token.ExpiresAt == nil || !token.ExpiresAt.Equal(issued.Add(time.Hour)) {
		t.Fatalf("expected expiry to be copied, got %v", token.ExpiresAt)
	}
	if token.Provider != DefaultTokenProvider || token.Name != DefaultTokenName {
		t.Fatalf("unexpected provider/name %q/%q", token.Provider, token.Name)
	}
}

func TestRoleNames(t *testing.T) {
	if got := RoleNames(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}

	got := RoleNames([]*Role{NewRole(RoleGuest), nil, NewRole(RoleOwner)})
	if len(got) != 2 || got[0] != RoleGuest || got[1] != RoleOwner {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestIsKnownRole(t *testing.T) {
	for _, r := range GetAllRoles() {
		if !IsKnownRole(r) {
			t.Fatalf("expected %q to be known", r)
		}
	}
	if IsKnownRole("superuser") {
		t.Fatalf("expected unknown role")
	}
}
