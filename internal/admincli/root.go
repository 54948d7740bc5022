// Package admincli implements the folioguard-admin command: schema
// migrations and provisioning of admin accounts outside the web UI.
package admincli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/cryptox"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/logging"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folioguard/internal/server/services"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultDSN = "file:./dev.db"

var wipe = common.WipeByteArray

type options struct {
	dsn      string
	logLevel string
	params   cryptox.Argon2Params
	logger   logging.Logger
}

// NewRootCommand builds the command tree. The database defaults to
// DATABASE_URL, read from the environment or a .env file.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{params: cryptox.DefaultArgon2Params()})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "folioguard-admin",
		Short:         "Manage folioguard admin accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.dsn == "" {
				_ = godotenv.Load()
				opts.dsn = os.Getenv("DATABASE_URL")
			}
			if opts.dsn == "" {
				opts.dsn = defaultDSN
			}
			opts.logger = logging.NewText(cmd.ErrOrStderr(), opts.logLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dsn, "db-url", "", "database URL (env: DATABASE_URL)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newMigrateCommand(opts),
		newCreateCommand(opts),
		newResetCommand(opts),
		newInspectCommand(opts),
	)
	return root
}

// Execute runs the command with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) open(ctx context.Context) (*sql.DB, repomanager.RepositoryManager, error) {
	db, dialect, err := dbx.Open(ctx, o.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	m, err := repomanager.New(dialect)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	o.logger.Debug(ctx, "connected", "dialect", string(dialect))
	return db, m, nil
}

// withAdmins opens the store and hands an AdminService to fn.
func (o *options) withAdmins(ctx context.Context, fn func(*services.AdminService) error) error {
	db, m, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	admins, err := services.NewAdminService(db, m, cryptox.NewHasher(o.params))
	if err != nil {
		return err
	}
	return fn(admins)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
