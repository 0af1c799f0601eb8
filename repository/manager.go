package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/hcsuite/go-auth"
)

const migrationsLabel = "data/sql/migrations"

// Manager exposes the repositories backed by a single database
type Manager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Migrate(ctx context.Context) error
	Accounts() *Accounts
	Close() error
}

// Config describes the SQLite connection handed to the persistence client
type Config struct {
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

var _ persistence.Config = Config{}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	return sqliteshim.ShimName
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	return ""
}

type mngr struct {
	client   *persistence.Client
	db       *bun.DB
	accounts *Accounts
}

func newManager(client *persistence.Client) *mngr {
	m := &mngr{
		client: client,
		db:     client.DB(),
	}
	m.accounts = NewAccounts(m.db, WithTxRunner(m))
	return m
}

// OpenSQLite opens dsn with default connection settings
func OpenSQLite(dsn string) (Manager, error) {
	return Open(Config{DSN: dsn})
}

// Open connects to cfg through the persistence client and registers the
// embedded migrations. Call Migrate to apply them.
func Open(cfg Config) (Manager, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetServer())
	if err != nil {
		return nil, err
	}
	// in-memory databases live and die with their connection
	sqldb.SetMaxOpenConns(1)

	persistence.RegisterModel((*auth.AccountRole)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}

	m := newManager(client)
	if _, err := m.db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = m.db.Close()
		return nil, err
	}

	migrations, err := auth.MigrationsDir()
	if err != nil {
		_ = m.db.Close()
		return nil, err
	}
	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel(migrationsLabel),
		persistence.WithValidationTargets("sqlite"),
	)

	return m, nil
}

func (m mngr) Validate() error {
	if m.client == nil || m.db == nil {
		return errors.New("database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate applies the embedded SQL migrations
func (m mngr) Migrate(ctx context.Context) error {
	if err := m.client.ValidateDialects(ctx); err != nil {
		return err
	}
	return m.client.Migrate(ctx)
}

func (m mngr) Accounts() *Accounts {
	return m.accounts
}

func (m mngr) Close() error {
	return m.db.Close()
}
