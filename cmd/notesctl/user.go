package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(a))
	return cmd
}

func newUserCreateCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a local account",
		Long: `Create a local account with the same rules as the signup page.
The password comes from --password or NOTESCTL_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("NOTESCTL_PASSWORD")
			}
			user, err := a.accounts.Signup(cmd.Context(), args[0], password, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User created: %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for the new account")
	return cmd
}
