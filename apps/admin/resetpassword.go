package main

import (
	"context"

	"github.com/spf13/cobra"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.readPassword("Enter password")
			if err != nil {
				return err
			}
			if err = cli.resetPassword(cmd.Context(), login, pwd); err != nil {
				return err
			}
			cli.printf("password of %s updated\n", login)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "username", "", "the user's username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// resetPassword also ends every open session of the user.
func (cli *commandLine) resetPassword(ctx context.Context, login, pwd string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return cli.sessions.CloseAll(ctx, usr.ID)
}
