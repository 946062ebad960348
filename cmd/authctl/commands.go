package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmanager/backend/internal/auth"
	"github.com/taskmanager/backend/internal/logger"
)

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (prompted for when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				pw, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = pw
			}
			if password == "" {
				return errNoPassword
			}
			hash, err := auth.NewHasher(cost).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 10, "bcrypt cost")
	return cmd
}

type createAccountFlags struct {
	firstName string
	lastName  string
	email     string
	password  string
	role      string
}

func newCreateAccountCmd(e *env) *cobra.Command {
	f := &createAccountFlags{}
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an active account, for example the first Admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.password == "" {
				pw, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				f.password = pw
			}

			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := e.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			tokens, err := tokenIssuer(cfg)
			if err != nil {
				return err
			}
			svc := auth.NewService(store, auth.NewHasher(cfg.BcryptCost), tokens, logger.Discard(), nil)
			sess, err := svc.Register(cmd.Context(), auth.RegisterInput{
				FirstName: f.firstName,
				LastName:  f.lastName,
				Email:     f.email,
				Password:  f.password,
				Role:      f.role,
			})
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s (%s)\n", sess.Account.Role, sess.Account.ID, sess.Account.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.password, "password", "", "initial password (prompted for when omitted)")
	cmd.Flags().StringVar(&f.role, "role", "User", "User, Manager or Admin")
	for _, name := range []string{"first-name", "last-name", "email"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newIssueTokenCmd(e *env) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a session token for an active account without its password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := e.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			acct, err := store.FindByEmail(cmd.Context(), auth.NormalizeEmail(email))
			if err != nil {
				if errors.Is(err, auth.ErrAccountNotFound) {
					return fmt.Errorf("no account for %s", email)
				}
				return err
			}
			if !acct.IsActive {
				return fmt.Errorf("account %s is inactive", acct.Email)
			}

			tokens, err := tokenIssuer(cfg)
			if err != nil {
				return err
			}
			token, exp, err := tokens.Issue(acct)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			cmd.PrintErrf("expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newVerifyTokenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Verify a session token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			tokens, err := tokenIssuer(cfg)
			if err != nil {
				return err
			}
			claims, err := tokens.Verify(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}
}

// describe flattens an auth outcome into a one-line CLI error.
func describe(err error) error {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		return err
	}
	if len(authErr.Fields) > 0 {
		return fmt.Errorf("%s: %s", authErr.Message, strings.Join(authErr.Fields, "; "))
	}
	if authErr.Kind == auth.KindInternal && authErr.Err != nil {
		return fmt.Errorf("%s: %w", authErr.Message, authErr.Err)
	}
	return errors.New(authErr.Message)
}
