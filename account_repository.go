package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountRepository layers credential, role and session token rules on top
// of an AccountStore.
//
// The boolean methods (CreateAccount, AssignRole, AttachSessionToken,
// VerifyCredential, VerifyAccessToken) never return errors or panic: every
// failure is logged with its kind and reported as false. The error
// returning counterparts (Create, AddRole, AddSessionToken, CheckCredential,
// ValidateAccessToken) expose the failure for callers that need it.
type AccountRepository struct {
	store    AccountStore
	codec    CredentialCodec
	verifier AccessTokenVerifier
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// AccountRepositoryOption customizes an AccountRepository
type AccountRepositoryOption func(*AccountRepository)

// WithCredentialCodec overrides the default bcrypt codec
func WithCredentialCodec(codec CredentialCodec) AccountRepositoryOption {
	return func(r *AccountRepository) {
		if codec != nil {
			r.codec = codec
		}
	}
}

// WithRepositoryLogger sets the logger used to report downgraded failures
func WithRepositoryLogger(logger Logger) AccountRepositoryOption {
	return func(r *AccountRepository) {
		r.logger = normalizeLogger(logger)
	}
}

// WithActivitySink configures an ActivitySink for account events
func WithActivitySink(sink ActivitySink) AccountRepositoryOption {
	return func(r *AccountRepository) {
		r.activity = normalizeActivitySink(sink)
	}
}

// WithRepositoryClock injects a custom clock (useful for tests)
func WithRepositoryClock(clock func() time.Time) AccountRepositoryOption {
	return func(r *AccountRepository) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewAccountRepository returns a repository backed by store. verifier may
// be nil, in which case every access token is rejected.
func NewAccountRepository(store AccountStore, verifier AccessTokenVerifier, opts ...AccountRepositoryOption) *AccountRepository {
	r := &AccountRepository{
		store:    store,
		codec:    NewBcryptCodec(),
		verifier: verifier,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// CreateAccount encodes password, stamps the account as system created and
// persists it. It reports true only when the store returns the written
// record.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *Account, password string) bool {
	return r.boundary(ctx, "create account", func() error {
		_, err := r.Create(ctx, account, password)
		return err
	})
}

// AssignRole adds role to the account and persists it
func (r *AccountRepository) AssignRole(ctx context.Context, account *Account, role *Role) bool {
	return r.boundary(ctx, "assign role", func() error {
		return r.AddRole(ctx, account, role)
	})
}

// AttachSessionToken records token against the account and persists it
func (r *AccountRepository) AttachSessionToken(ctx context.Context, account *Account, token *SessionToken) bool {
	return r.boundary(ctx, "attach session token", func() error {
		return r.AddSessionToken(ctx, account, token)
	})
}

// VerifyCredential reports whether candidate matches the account's stored
// credential
func (r *AccountRepository) VerifyCredential(ctx context.Context, account *Account, candidate string) bool {
	return r.boundary(ctx, "verify credential", func() error {
		return r.CheckCredential(ctx, account, candidate)
	})
}

// VerifyAccessToken reports whether token is a valid bearer token
func (r *AccountRepository) VerifyAccessToken(ctx context.Context, token string) bool {
	return r.boundary(ctx, "verify access token", func() error {
		_, err := r.ValidateAccessToken(ctx, token)
		return err
	})
}

// Authenticate validates token and returns ctx carrying its claims. On
// failure the original ctx is returned with false.
func (r *AccountRepository) Authenticate(ctx context.Context, token string) (context.Context, bool) {
	var claims *JWTClaims
	ok := r.boundary(ctx, "authenticate", func() error {
		var err error
		claims, err = r.ValidateAccessToken(ctx, token)
		return err
	})
	if !ok {
		return ctx, false
	}
	return WithClaimsContext(ctx, claims), true
}

// ListRoleNames returns the names of the account's roles in no particular
// order. The result is empty, never nil, for a nil account.
func (r *AccountRepository) ListRoleNames(account *Account) []string {
	if account == nil || len(account.Roles) == 0 {
		return []string{}
	}
	return RoleNames(account.Roles)
}

// Create is CreateAccount with the failure reason
func (r *AccountRepository) Create(ctx context.Context, account *Account, password string) (*Account, error) {
	if account == nil {
		return nil, newKindError(ErrEmptyInput, nil, map[string]any{"field": "account"})
	}
	if password == "" {
		return nil, newKindError(ErrEmptyInput, nil, map[string]any{"field": "password"})
	}

	hash, err := r.codec.Encode(password)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, newKindError(ErrDecode, nil, map[string]any{"reason": "codec returned empty credential"})
	}

	// restored unless the write succeeds, including when the store panics
	prevID, prevHash, prevCreatedBy := account.ID, account.PasswordHash, account.CreatedBy
	stored := false
	defer func() {
		if !stored {
			account.ID, account.PasswordHash, account.CreatedBy = prevID, prevHash, prevCreatedBy
		}
	}()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.PasswordHash = hash
	account.CreatedBy = SystemProvenance

	saved, err := r.persist(ctx, account, true)
	if err != nil {
		return nil, err
	}
	stored = true

	r.emit(ctx, ActivityEventAccountCreated, saved.ID.String(), map[string]any{
		"username": saved.Username,
	})
	return saved, nil
}

// AddRole is AssignRole with the failure reason. A nil or unnamed role
// leaves the account untouched.
func (r *AccountRepository) AddRole(ctx context.Context, account *Account, role *Role) error {
	if role == nil || role.Name == "" {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "role"})
	}
	if account == nil {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "account"})
	}

	added := account.AddRole(role)
	if _, err := r.persist(ctx, account, false); err != nil {
		if added {
			account.removeRole(role.Name)
		}
		return err
	}

	r.emit(ctx, ActivityEventRoleAssigned, account.ID.String(), map[string]any{
		"role": role.Name,
	})
	return nil
}

// AddSessionToken is AttachSessionToken with the failure reason
func (r *AccountRepository) AddSessionToken(ctx context.Context, account *Account, token *SessionToken) error {
	if account == nil {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "account"})
	}
	if token == nil {
		return newKindError(ErrEmptyInput, nil, map[string]any{"field": "token"})
	}

	added := account.AddSessionToken(token)
	if _, err := r.persist(ctx, account, false); err != nil {
		if added {
			account.removeSessionToken(token.TokenHash)
		}
		return err
	}

	r.emit(ctx, ActivityEventTokenAttached, account.ID.String(), map[string]any{
		"token_id": token.TokenID,
		"provider": token.Provider,
	})
	return nil
}

// CheckCredential is VerifyCredential with the failure reason
func (r *AccountRepository) CheckCredential(ctx context.Context, account *Account, candidate string) error {
	if err := r.codec.Verify(account, candidate); err != nil {
		accountID := ""
		if account != nil {
			accountID = account.ID.String()
		}
		r.emit(ctx, ActivityEventCredentialFailed, accountID, map[string]any{
			MetadataKeyErrorKind: ErrorKind(err),
		})
		return err
	}
	return nil
}

// ValidateAccessToken is VerifyAccessToken with the failure reason
func (r *AccountRepository) ValidateAccessToken(ctx context.Context, token string) (*JWTClaims, error) {
	if r.verifier == nil {
		return nil, newKindError(ErrInvalidConfig, nil, map[string]any{"reason": "no token verifier configured"})
	}

	claims, err := r.verifier.Validate(token)
	if err != nil {
		r.emit(ctx, ActivityEventTokenRejected, "", map[string]any{
			MetadataKeyErrorKind: ErrorKind(err),
		})
		return nil, err
	}
	return claims, nil
}

func (r *AccountRepository) persist(ctx context.Context, account *Account, insert bool) (*Account, error) {
	if r.store == nil {
		return nil, newKindError(ErrPersistence, nil, map[string]any{"reason": "no store configured"})
	}

	var saved *Account
	var err error
	if insert {
		saved, err = r.store.Add(ctx, account)
	} else {
		saved, err = r.store.Update(ctx, account)
	}
	if err != nil {
		return nil, newKindError(ErrPersistence, err, nil)
	}
	if saved == nil {
		return nil, newKindError(ErrPersistence, nil, map[string]any{"reason": "store returned no record"})
	}
	return saved, nil
}

// boundary runs fn and turns any error or panic into false, logging the
// error kind.
func (r *AccountRepository) boundary(ctx context.Context, operation string, fn func() error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("account repository operation panicked",
				"operation", operation,
				"panic", fmt.Sprint(rec),
			)
			ok = false
		}
	}()

	if err := fn(); err != nil {
		r.logger.Warn("account repository operation failed",
			"operation", operation,
			"kind", ErrorKind(err),
			"category", errorCategory(err),
			"error", err,
		)
		return false
	}
	return true
}

func (r *AccountRepository) emit(ctx context.Context, eventType ActivityEventType, accountID string, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		AccountID:  accountID,
		Metadata:   meta,
		OccurredAt: r.now(),
	}
	if err := r.activity.Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error", "event", eventType, "error", err)
	}
}

func errorCategory(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return fmt.Sprint(richErr.Category)
	}
	return ""
}
