package main

import (
	"fmt"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/migrations"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"

	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := db.New(db.Config{Path: a.dbPath})
			defer store.Shutdown()
			if reset {
				if err := migrations.Reset(ctx, store); err != nil {
					return err
				}
				a.log.Warn("schema rolled back", "db", a.dbPath)
			}
			version, err := migrations.Apply(ctx, store)
			if err != nil {
				return err
			}
			a.log.Info("schema up to date", "db", a.dbPath, "version", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Roll every migration back before applying (drops all data)")
	return cmd
}

func (a *app) seedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and categories from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := loadSeedFile(path)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(store *db.Store) error {
				summary, err := applySeed(cmd.Context(), store, a.tokens(), seed)
				if err != nil {
					return err
				}
				a.log.Info("seed applied",
					"usersCreated", summary.UsersCreated,
					"usersSkipped", summary.UsersSkipped,
					"categoriesCreated", summary.CategoriesCreated)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "file", "seed.yaml", "Seed file")
	return cmd
}

func (a *app) setRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: fmt.Sprintf("Change a user's role (%v)", models.Roles),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[1])
			}
			return a.withStore(cmd.Context(), func(store *db.Store) error {
				user, err := services.GetUserByEmail(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if _, err := services.SetUserRole(cmd.Context(), store, user.ID, role); err != nil {
					return err
				}
				a.log.Info("role updated", "email", user.Email, "role", role)
				return nil
			})
		},
	}
}

func (a *app) createAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin <email> <password>",
		Short: "Create an approved admin account, or promote an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *db.Store) error {
				user, created, err := ensureUser(cmd.Context(), store, a.tokens(), seedUser{
					Email:    args[0],
					Password: args[1],
					Name:     "Administrator",
					Role:     models.RoleAdmin,
					Approval: models.ApprovalApproved,
				})
				if err != nil {
					return err
				}
				a.log.Info("admin ready", "email", user.Email, "created", created)
				return nil
			})
		},
	}
}
