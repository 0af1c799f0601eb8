package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/hcsuite/go-auth"
	"github.com/hcsuite/go-auth/config"
)

// session keeps the app opened by the pre-run hook so it can be released
// after Execute returns. Cobra skips post-run hooks when RunE fails.
type session struct {
	app *app
}

func (s *session) close() {
	if s == nil {
		return
	}
	s.app.close()
}

// execute runs root and always releases the session
func execute(ctx context.Context, root *cobra.Command, sess *session) error {
	defer sess.close()
	return root.ExecuteContext(ctx)
}

func newRootCmd(out io.Writer, sess *session) *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Manage accounts, roles and access tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile, envFile != ""); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), out, configPath)
			if err != nil {
				return err
			}
			sess.app = a
			withApp(cmd, a)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (AUTH_* env vars override)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to export before loading config (default .env when present)")

	root.AddCommand(
		newAccountCmd(),
		newRoleCmd(),
		newRolesCmd(),
		newVerifyPasswordCmd(),
		newTokenCmd(),
	)
	return root
}

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account commands",
	}

	var username, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with an encoded credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			account := &auth.Account{Username: username, Email: email}
			saved, err := a.accounts.Create(cmd.Context(), account, password)
			if err != nil {
				return fmt.Errorf("create account (%s): %w", auth.ErrorKind(err), err)
			}
			fmt.Fprintf(a.out, "%s\t%s\n", saved.ID, saved.Username)
			return nil
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "account username")
	create.Flags().StringVarP(&email, "email", "e", "", "account email")
	create.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Role commands",
	}

	var username, role, description string
	assign := &cobra.Command{
		Use:   "assign",
		Short: "Assign a role to an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			account, err := a.account(cmd.Context(), username)
			if err != nil {
				return err
			}
			if !auth.IsKnownRole(role) {
				a.logger.Warn().
					Str("role", role).
					Strs("known", auth.GetAllRoles()).
					Msg("assigning role outside the built-in set")
			}
			r := auth.NewRole(role)
			r.Description = description
			if err := a.accounts.AddRole(cmd.Context(), account, r); err != nil {
				return fmt.Errorf("assign role (%s): %w", auth.ErrorKind(err), err)
			}
			fmt.Fprintln(a.out, strings.Join(a.accounts.ListRoleNames(account), ","))
			return nil
		},
	}
	assign.Flags().StringVarP(&username, "username", "u", "", "account username")
	assign.Flags().StringVarP(&role, "role", "r", "", "role name")
	assign.Flags().StringVar(&description, "description", "", "role description")
	_ = assign.MarkFlagRequired("username")
	_ = assign.MarkFlagRequired("role")

	cmd.AddCommand(assign)
	return cmd
}

func newRolesCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List the roles assigned to an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			account, err := a.account(cmd.Context(), username)
			if err != nil {
				return err
			}
			for _, name := range a.accounts.ListRoleNames(account) {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newVerifyPasswordCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "verify-password",
		Short: "Check a password against the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			account, err := a.account(cmd.Context(), username)
			if err != nil {
				return err
			}
			ok := a.accounts.VerifyCredential(cmd.Context(), account, password)
			fmt.Fprintln(a.out, ok)
			if !ok {
				return errors.New("credential rejected")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "candidate password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token commands",
	}

	var username string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Mint an access token and record it against the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			account, err := a.account(cmd.Context(), username)
			if err != nil {
				return err
			}
			raw, claims, err := a.tokens.Generate(cmd.Context(), account)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			if err := a.accounts.AddSessionToken(cmd.Context(), account, auth.NewSessionToken(raw, claims)); err != nil {
				return fmt.Errorf("attach token (%s): %w", auth.ErrorKind(err), err)
			}
			fmt.Fprintln(a.out, raw)
			return nil
		},
	}
	issue.Flags().StringVarP(&username, "username", "u", "", "account username")
	_ = issue.MarkFlagRequired("username")

	var token string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Validate an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx, ok := a.accounts.Authenticate(cmd.Context(), token)
			if !ok {
				fmt.Fprintln(a.out, false)
				return errors.New("token rejected")
			}
			claims, _ := auth.GetClaims(ctx)
			fmt.Fprintf(a.out, "true\t%s\t%s\n", claims.Subject(), strings.Join(claims.Roles(), ","))
			return nil
		},
	}
	verify.Flags().StringVarP(&token, "token", "t", "", "bearer token")
	_ = verify.MarkFlagRequired("token")

	cmd.AddCommand(issue, verify)
	return cmd
}
