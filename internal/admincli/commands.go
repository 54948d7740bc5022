package admincli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/server/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, m, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := m.RunMigrations(ctx, db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			printf(cmd.OutOrStdout(), "Migrations applied\n")
			return nil
		},
	}
}

func newCreateCommand(opts *options) *cobra.Command {
	var (
		in    services.NewAdminInput
		stdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin that must change the password on first login",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := createPassword(cmd, in.Password, stdin)
			if err != nil {
				return err
			}
			defer wipe(password)
			in.Password = string(password)

			return opts.withAdmins(cmd.Context(), func(admins *services.AdminService) error {
				id, err := admins.CreateAdmin(cmd.Context(), in)
				if err != nil {
					if errors.Is(err, common.ErrorAlreadyExists) {
						return fmt.Errorf("admin %q or its email already exists", in.Username)
					}
					return describe(err)
				}
				printf(cmd.OutOrStdout(), "Created admin %s (%s). The password must be changed on first login.\n", id.Username, id.ID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "login name (required)")
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Password, "password", "", "initial password; prompted for when omitted")
	f.BoolVar(&stdin, "stdin", false, "read the password from the first line of stdin")
	f.BoolVar(&in.Legacy, "legacy", false, "store a legacy scrypt credential (migration testing)")
	_ = cmd.MarkFlagRequired("username")
	cmd.MarkFlagsMutuallyExclusive("password", "stdin")

	return cmd
}

// createPassword picks the password source: the flag, stdin or a terminal
// prompt, in that order.
func createPassword(cmd *cobra.Command, flag string, stdin bool) ([]byte, error) {
	switch {
	case flag != "":
		return []byte(flag), nil
	case stdin:
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		return []byte(line), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("password is required (use --password, --stdin or a terminal)")
	}
	return promptPassword(fd, cmd.ErrOrStderr())
}

func newResetCommand(opts *options) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Require an admin to change the password on next login",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAdmins(cmd.Context(), func(admins *services.AdminService) error {
				if err := admins.RequirePasswordChange(cmd.Context(), username); err != nil {
					return describe(err)
				}
				printf(cmd.OutOrStdout(), "Admin %s must change the password on next login.\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newInspectCommand(opts *options) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show which hashing scheme protects an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAdmins(cmd.Context(), func(admins *services.AdminService) error {
				r, err := admins.InspectCredential(cmd.Context(), username)
				if err != nil {
					return describe(err)
				}
				w := cmd.OutOrStdout()
				printf(w, "username:             %s\n", r.Username)
				printf(w, "scheme:               %s\n", r.Scheme)
				printf(w, "is_admin:             %t\n", r.IsAdmin)
				printf(w, "must_change_password: %t\n", r.MustChangePassword)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// describe turns domain errors into operator-facing messages.
func describe(err error) error {
	var coded *common.CodedError
	switch {
	case errors.As(err, &coded):
		return errors.New(coded.Message)
	case errors.Is(err, common.ErrorNotFound):
		return errors.New("no such account")
	default:
		return err
	}
}
