package main

import (
	"github.com/spf13/cobra"
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := migrateUpFunc(cli.db); err != nil {
					return err
				}
				return cli.printVersion()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := migrateDownFunc(cli.db); err != nil {
					return err
				}
				return cli.printVersion()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return cli.printVersion()
			},
		},
	)
	return cmd
}

func (cli *commandLine) printVersion() error {
	v, err := migrateVersionFunc(cli.db)
	if err != nil {
		return err
	}
	cli.printf("schema version: %d\n", v)
	return nil
}
