package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docflow-backend/internal/users"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the user directory",
	}
	cmd.AddCommand(newUsersAddCommand(), newUsersListCommand(), newUsersDeactivateCommand())
	return cmd
}

func newUsersAddCommand() *cobra.Command {
	var in users.CreateInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			u, err := app.UsersService.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printUsers(cmd, []users.User{u})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Role, "role", string(users.RoleUser), "Role: user, supervisor or admin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			list, err := app.UsersService.List(cmd.Context())
			if err != nil {
				return err
			}
			return printUsers(cmd, list)
		},
	}
}

func newUsersDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [user id]",
		Short: "Deactivate a user so they can no longer sign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			inactive := false
			u, err := app.UsersService.Update(cmd.Context(), args[0], users.UpdateInput{IsActive: &inactive})
			if err != nil {
				return err
			}
			return printUsers(cmd, []users.User{u})
		},
	}
}

func printUsers(cmd *cobra.Command, list []users.User) error {
	return render(cmd, list, func() table.Writer {
		tw := newTable()
		tw.AppendHeader(table.Row{"ID", "EMAIL", "NAME", "ROLE", "ACTIVE"})
		for _, u := range list {
			tw.AppendRow(table.Row{u.ID, u.Email, u.FullName, u.Role, u.IsActive})
		}
		return tw
	})
}
