package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

func (cli *commandLine) listUsersCmd() *cobra.Command {
	var (
		roles  []string
		search string
	)

	cmd := &cobra.Command{
		Use:   "listusers",
		Short: "List users by email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := user.QueryFilter{Search: search}
			for _, r := range roles {
				role, err := session.ParseRole(core.CleanString(r, true /* lower */))
				if err != nil {
					return err
				}
				filter.Roles = append(filter.Roles, role)
			}

			users, err := cli.usrSvc.Filter(cmd.Context(), filter, core.DBOrdering{Field: "email", Ascending: true})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tACTIVE")
			for _, usr := range users {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", usr.Email, usr.Name, usr.Role, yesNo(usr.IsActive))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "only users of these roles")
	cmd.Flags().StringVar(&search, "search", "", "match on name, username or email")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
