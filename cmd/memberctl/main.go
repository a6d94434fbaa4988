package main

import (
	"context"
	"os"

	"memberhub-backend-go/internal/config"
	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/logger"
	"memberhub-backend-go/internal/migrations"
	"memberhub-backend-go/internal/services"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type app struct {
	cfg    config.Config
	log    *charmlog.Logger
	dbPath string
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	a := &app{
		cfg: cfg,
		log: logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: os.Stderr}),
	}
	if err := a.rootCmd().Execute(); err != nil {
		a.log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "memberctl",
		Short:         "Administrative tasks for the memberhub database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", a.cfg.DatabasePath, "Path to the SQLite database file")
	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		a.setRoleCmd(),
		a.createAdminCmd(),
	)
	return root
}

func (a *app) tokens() services.TokenService {
	return services.TokenService{Secret: []byte(a.cfg.JWTSecret), Issuer: a.cfg.JWTIssuer}
}

// withStore opens the database, brings the schema up to date and closes it
// when fn returns.
func (a *app) withStore(ctx context.Context, fn func(store *db.Store) error) error {
	store := db.New(db.Config{Path: a.dbPath})
	defer func() {
		if err := store.Shutdown(); err != nil {
			a.log.Warn("database shutdown", "err", err)
		}
	}()
	if _, err := migrations.Apply(ctx, store); err != nil {
		return err
	}
	return fn(store)
}
