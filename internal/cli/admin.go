package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/utils"
)

// minPasswordLength matches the registration form.
const minPasswordLength = 8

// AdminStore creates or promotes users.
type AdminStore interface {
	Create(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error)
	SetRole(ctx context.Context, username string, role models.Role) error
}

// AdminOptions are the create-admin flags.
type AdminOptions struct {
	Username string
	Password string
	Promote  bool
}

// NewCreateAdminCommand creates the create-admin command.
func NewCreateAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminOptions{}
	cmd := &cobra.Command{
		Use:          "create-admin",
		Short:        "Create an admin account",
		Long:         "Create an admin account with an empty profile. With --promote an existing user is given the admin role instead.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := rootOpts.connect(cmd.Context())
			defer logger.Sync()
			if err != nil {
				return err
			}
			defer pool.Close()
			return CreateAdmin(cmd.Context(), auth.NewRepository(pool), *opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "admin username")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "admin password")
	cmd.Flags().BoolVar(&opts.Promote, "promote", false, "promote the user if the username already exists")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// CreateAdmin creates the admin user described by opts.
func CreateAdmin(ctx context.Context, store AdminStore, opts AdminOptions, out io.Writer) error {
	if opts.Username == "" {
		return errors.New("username is required")
	}
	if opts.Promote && opts.Password == "" {
		if err := store.SetRole(ctx, opts.Username, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote %q: %w", opts.Username, err)
		}
		fmt.Fprintf(out, "promoted %s to admin\n", opts.Username)
		return nil
	}
	if len(opts.Password) < minPasswordLength {
		return fmt.Errorf("password must contain at least %d characters", minPasswordLength)
	}
	hash, err := utils.HashPassword(opts.Password)
	if err != nil {
		return err
	}
	user, err := store.Create(ctx, opts.Username, hash, models.RoleAdmin)
	if errors.Is(err, auth.ErrUsernameTaken) && opts.Promote {
		if err := store.SetRole(ctx, opts.Username, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote %q: %w", opts.Username, err)
		}
		fmt.Fprintf(out, "promoted %s to admin\n", opts.Username)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create %q: %w", opts.Username, err)
	}
	fmt.Fprintf(out, "created admin %s (%s)\n", user.Username, user.ID)
	return nil
}
