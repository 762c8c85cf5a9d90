package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue API tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "issue [email]",
		Short: "Issue a bearer token for an active user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			u, err := app.UsersService.FindByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !u.IsActive {
				return errors.New("user is inactive")
			}
			tok, err := app.Tokens.SignJWT(u.ID, u.Email, u.FullName, string(u.Role))
			if err != nil {
				return err
			}
			cmd.Println(tok)
			return nil
		},
	})
	return cmd
}
