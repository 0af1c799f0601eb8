package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SystemProvenance is stamped on accounts created through AccountRepository
const SystemProvenance = "system"

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string          `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string          `bun:"email" json:"email,omitempty"`
	PasswordHash  string          `bun:"password_hash" json:"-"`
	CreatedBy     string          `bun:"created_by" json:"created_by,omitempty"`
	Roles         []*Role         `bun:"m2m:account_roles,join:Account=Role" json:"roles,omitempty"`
	SessionTokens []*SessionToken `bun:"rel:has-many,join:id=account_id" json:"session_tokens,omitempty"`
	CreatedAt     *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AddRole adds role to the account's role set. It reports false when the
// role is nil or already present.
func (a *Account) AddRole(role *Role) bool {
	if a == nil || role == nil || role.Name == "" {
		return false
	}
	if a.HasRole(role.Name) {
		return false
	}
	a.Roles = append(a.Roles, role)
	return true
}

// HasRole reports whether a role with the given name is assigned
func (a *Account) HasRole(name string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r != nil && r.Name == name {
			return true
		}
	}
	return false
}

// AddSessionToken adds token to the account's token set, keyed by hash
func (a *Account) AddSessionToken(token *SessionToken) bool {
	if a == nil || token == nil || token.TokenHash == "" {
		return false
	}
	for _, t := range a.SessionTokens {
		if t != nil && t.TokenHash == token.TokenHash {
			return false
		}
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.AccountID = a.ID
	a.SessionTokens = append(a.SessionTokens, token)
	return true
}

func (a *Account) removeRole(name string) {
	for i, r := range a.Roles {
		if r != nil && r.Name == name {
			a.Roles = append(a.Roles[:i], a.Roles[i+1:]...)
			return
		}
	}
}

func (a *Account) removeSessionToken(hash string) {
	for i, t := range a.SessionTokens {
		if t != nil && t.TokenHash == hash {
			a.SessionTokens = append(a.SessionTokens[:i], a.SessionTokens[i+1:]...)
			return
		}
	}
}

// Role is a named authorization label
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	Name          string     `bun:"name,pk" json:"name"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NewRole returns a role with the given name
func NewRole(name string) *Role {
	return &Role{Name: name}
}

// AccountRole joins accounts and roles
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:accr"`
	AccountID     uuid.UUID `bun:"account_id,pk,type:uuid"`
	Account       *Account  `bun:"rel:belongs-to,join:account_id=id"`
	RoleName      string    `bun:"role_name,pk"`
	Role          *Role     `bun:"rel:belongs-to,join:role_name=name"`
}

// SessionToken records a bearer token issued to an account. Only a digest
// of the raw token is kept.
type SessionToken struct {
	bun.BaseModel `bun:"table:account_tokens,alias:acct"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Provider      string     `bun:"provider" json:"provider,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	TokenID       string     `bun:"token_id" json:"token_id,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	IssuedAt      *time.Time `bun:"issued_at,nullzero" json:"issued_at,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// DefaultTokenProvider is the provider recorded for tokens minted here
const DefaultTokenProvider = "local"

// DefaultTokenName is the name recorded for access tokens
const DefaultTokenName = "access_token"

// NewSessionToken builds a token record from a raw bearer token. Claims are
// optional; when given, jti/iat/exp are copied.
func NewSessionToken(raw string, claims *JWTClaims) *SessionToken {
	if raw == "" {
		return nil
	}
	t := &SessionToken{
		ID:        uuid.New(),
		Provider:  DefaultTokenProvider,
		Name:      DefaultTokenName,
		TokenHash: HashToken(raw),
	}
	if claims != nil {
		t.TokenID = claims.ID
		if iat := claims.IssuedAt(); !iat.IsZero() {
			t.IssuedAt = &iat
		}
		if exp := claims.Expires(); !exp.IsZero() {
			t.ExpiresAt = &exp
		}
	}
	return t
}

// HashToken returns the hex SHA-256 digest of a raw token
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
