package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/hcsuite/go-auth"
)

// TxRunner runs f inside a database transaction
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// Accounts implements auth.AccountStore. The account row goes through a
// generic repository while role memberships and session tokens are written
// with plain bun in the same transaction.
type Accounts struct {
	rows repository.Repository[*auth.Account]
	db   *bun.DB
	tx   TxRunner
	now  func() time.Time
}

var _ auth.AccountStore = (*Accounts)(nil)

// AccountsOption customizes Accounts
type AccountsOption func(*Accounts)

// WithTxRunner routes writes through runner instead of the bare db
func WithTxRunner(runner TxRunner) AccountsOption {
	return func(a *Accounts) {
		if runner != nil {
			a.tx = runner
		}
	}
}

// NewAccounts creates a new repository.
func NewAccounts(db *bun.DB, opts ...AccountsOption) *Accounts {
	db.RegisterModel((*auth.AccountRole)(nil))

	rows := repository.NewRepository[*auth.Account](db, repository.ModelHandlers[*auth.Account]{
		NewRecord: func() *auth.Account { return &auth.Account{} },
		GetID: func(a *auth.Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *auth.Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	accounts := &Accounts{
		rows: rows,
		db:   db,
		tx:   db,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(accounts)
		}
	}
	return accounts
}

// Add implements auth.AccountStore.
func (r *Accounts) Add(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	if account == nil {
		return nil, goerrors.New("account is required", goerrors.CategoryBadInput)
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	now := r.now()
	if account.CreatedAt == nil {
		account.CreatedAt = &now
	}
	account.UpdatedAt = &now

	err := r.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := r.rows.CreateTx(ctx, tx, account); err != nil {
			return err
		}
		return r.syncRelations(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, account.ID)
}

// Update implements auth.AccountStore.
func (r *Accounts) Update(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	if account == nil || account.ID == uuid.Nil {
		return nil, goerrors.New("account with id is required", goerrors.CategoryBadInput)
	}

	now := r.now()
	account.UpdatedAt = &now

	err := r.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*auth.Account)(nil)).
			Where("?TableAlias.id = ?", account.ID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": account.ID.String(),
				})
		}

		if _, err := r.rows.UpdateTx(ctx, tx, account, accountColumns); err != nil {
			return err
		}
		return r.syncRelations(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, account.ID)
}

// GetByID loads an account with its roles and session tokens
func (r *Accounts) GetByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	return r.rows.GetByID(ctx, id.String(), withRelations)
}

// GetByUsername loads an account with its roles and session tokens
func (r *Accounts) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	return r.rows.GetByIdentifier(ctx, strings.TrimSpace(username), withRelations)
}

func withRelations(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("Roles").Relation("SessionTokens")
}

func accountColumns(q *bun.UpdateQuery) *bun.UpdateQuery {
	return q.
		Column("username", "email", "password_hash", "created_by", "updated_at").
		WherePK()
}

func (r *Accounts) syncRelations(ctx context.Context, tx bun.IDB, account *auth.Account) error {
	now := r.now()

	roles := make([]*auth.Role, 0, len(account.Roles))
	memberships := make([]*auth.AccountRole, 0, len(account.Roles))
	for _, role := range account.Roles {
		if role == nil || role.Name == "" {
			continue
		}
		if role.CreatedAt == nil {
			role.CreatedAt = &now
		}
		roles = append(roles, role)
		memberships = append(memberships, &auth.AccountRole{
			AccountID: account.ID,
			RoleName:  role.Name,
		})
	}

	if len(roles) > 0 {
		if _, err := tx.NewInsert().Model(&roles).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&memberships).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return err
		}
	}

	tokens := make([]*auth.SessionToken, 0, len(account.SessionTokens))
	for _, token := range account.SessionTokens {
		if token == nil || token.TokenHash == "" {
			continue
		}
		if token.ID == uuid.Nil {
			token.ID = uuid.New()
		}
		token.AccountID = account.ID
		if token.CreatedAt == nil {
			token.CreatedAt = &now
		}
		tokens = append(tokens, token)
	}

	if len(tokens) > 0 {
		if _, err := tx.NewInsert().Model(&tokens).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
