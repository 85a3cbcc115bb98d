package main

import (
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	"github.com/karemsaeed20020/Education-Platform-sub002/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	// mockable
	migrateUpFunc      = database.Migrate
	migrateDownFunc    = database.Rollback
	migrateVersionFunc = database.Version

	errEmptyPassword = errors.New("password must not be empty")
)

type commandLine struct {
	db       *sqlx.DB
	usrSvc   *user.Service
	usrRepo  user.Repository
	sessions *session.Store
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

// readPassword prompts for a password on the terminal.
func (cli *commandLine) readPassword(prompt string) (string, error) {
	cli.printf("%s:", prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Madrasa administration tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.AddCommand(cli.addUserCmd(), cli.resetPasswordCmd(), cli.listUsersCmd(), cli.migrateCmd())
	return root
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}
