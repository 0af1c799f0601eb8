package main

import (
	"context"
	"fmt"
	"io"
	"os"

	bunrepo "github.com/goliatone/go-repository-bun"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	auth "github.com/hcsuite/go-auth"
	"github.com/hcsuite/go-auth/activitymap"
	"github.com/hcsuite/go-auth/config"
	"github.com/hcsuite/go-auth/repository"
)

// app holds everything a subcommand needs once configuration is loaded
type app struct {
	out      io.Writer
	cfg      *config.Config
	logger   zerolog.Logger
	manager  repository.Manager
	tokens   *auth.TokenService
	accounts *auth.AccountRepository
}

func newApp(ctx context.Context, out io.Writer, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Str("component", "authctl").Logger()
	logger := auth.NewZerologLogger(zl)

	tvc, err := cfg.TokenValidationConfig()
	if err != nil {
		return nil, fmt.Errorf("token config: %w", err)
	}
	tvc = auth.InitTokenValidationConfig(tvc)

	manager, err := repository.Open(repository.Config{
		DSN:         cfg.Database.DSN,
		Debug:       cfg.Database.Debug,
		PingTimeout: cfg.Database.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	manager.MustValidate()
	if err := manager.Migrate(ctx); err != nil {
		manager.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	verifier := auth.NewTokenVerifier(tvc, auth.WithVerifierLogger(logger))
	accounts := auth.NewAccountRepository(manager.Accounts(), verifier,
		auth.WithCredentialCodec(auth.NewBcryptCodec(cfg.CodecOptions()...)),
		auth.WithRepositoryLogger(logger),
		auth.WithActivitySink(auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
			record := activitymap.Normalize(e, activitymap.WithActor(operator()), activitymap.WithChannel("cli"))
			zl.Info().
				Str("actor_id", record.ActorID).
				Str("verb", record.Verb).
				Str("object_id", record.ObjectID).
				Str("outcome", record.Outcome).
				Fields(record.Metadata).
				Time("occurred_at", record.OccurredAt).
				Msg("activity")
			return nil
		})),
	)

	return &app{
		out:      out,
		cfg:      cfg,
		logger:   zl,
		manager:  manager,
		tokens:   auth.NewTokenService(tvc, cfg.TokenTTL, auth.WithTokenLogger(logger)),
		accounts: accounts,
	}, nil
}

func (a *app) close() {
	if a == nil || a.manager == nil {
		return
	}
	if err := a.manager.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close database")
	}
}

func (a *app) account(ctx context.Context, username string) (*auth.Account, error) {
	account, err := a.manager.Accounts().GetByUsername(ctx, username)
	if err != nil {
		if bunrepo.IsRecordNotFound(err) {
			return nil, fmt.Errorf("account %q not found", username)
		}
		return nil, err
	}
	return account, nil
}

// operator names the local user running the command
func operator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return auth.SystemProvenance
}

type appKey struct{}

func withApp(cmd *cobra.Command, a *app) {
	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}
