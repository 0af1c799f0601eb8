package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/hcsuite/go-auth"
)

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()

	assert.False(t, auth.HasRole(ctx, auth.RoleAdmin))

	claims := &auth.JWTClaims{RoleList: []string{auth.RoleAdmin}}
	ctx = auth.WithClaimsContext(ctx, claims)

	got, ok := auth.GetClaims(ctx)
	assert.True(t, ok)
	assert.Same(t, claims, got)
	assert.True(t, auth.HasRole(ctx, auth.RoleAdmin))
	assert.False(t, auth.HasRole(ctx, auth.RoleOwner))
}
