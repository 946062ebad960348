package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmanager/backend/internal/auth"
	"github.com/taskmanager/backend/internal/config"
	"github.com/taskmanager/backend/internal/db"
	"github.com/taskmanager/backend/internal/logger"
)

// env is how commands reach configuration and storage. Tests swap both.
type env struct {
	loadConfig func() (config.Config, error)
	openStore  func(ctx context.Context, cfg config.Config) (auth.AccountStore, func(), error)
}

func defaultEnv() *env {
	return &env{
		loadConfig: config.Load,
		openStore: func(ctx context.Context, cfg config.Config) (auth.AccountStore, func(), error) {
			conn, err := db.Connect(ctx, cfg.DatabaseURL, logger.New("authctl", cfg.LogLevel), 15*time.Second)
			if err != nil {
				return nil, nil, err
			}
			if err := auth.Migrate(conn); err != nil {
				_ = db.Close(conn)
				return nil, nil, err
			}
			return auth.NewGormStore(conn), func() { _ = db.Close(conn) }, nil
		},
	}
}

// NewRootCmd creates the root command for authctl.
func NewRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "authctl",
		Short:        "Administer task manager accounts and tokens",
		SilenceUsage: true,
	}

	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newCreateAccountCmd(e))
	cmd.AddCommand(newIssueTokenCmd(e))
	cmd.AddCommand(newVerifyTokenCmd(e))

	return cmd
}

func tokenIssuer(cfg config.Config) (*auth.TokenIssuer, error) {
	return auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
}
