package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, email, username, role string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the role and password of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := session.ParseRole(core.CleanString(role, true /* lower */))
			if err != nil {
				return err
			}
			pwd, err := cli.readPassword("Enter password")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), user.NewUser{
				Name:            name,
				Username:        username,
				Email:           email,
				Role:            r,
				Password:        pwd,
				PasswordConfirm: pwd,
			})
			if err != nil {
				return err
			}
			cli.printf("%s user %s saved\n", usr.Role, usr.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email, used to find an existing user")
	cmd.Flags().StringVar(&username, "username", "", "username (defaults to the email)")
	cmd.Flags().StringVar(&role, "role", session.RoleAdmin.String(), "admin, student or parent")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) (user.User, error) {
	usr, err := cli.usrSvc.GetByEmail(ctx, nu.Email)
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
		if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
			return user.User{}, err
		}
		return cli.usrSvc.Create(ctx, nu)
	}

	usr.Role = nu.Role
	usr.IsActive = true
	if err = usr.SetPassword(nu.Password); err != nil {
		return user.User{}, err
	}
	return cli.usrRepo.UpdateUser(ctx, usr)
}
