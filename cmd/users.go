package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpg-stage/stagectl/internal/state"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and create users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			roster := state.NewRoster(a.client)
			if err := roster.LoadUsers(cmd.Context()); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL")
			for _, u := range roster.Users() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
			}
			return w.Flush()
		},
	})

	var name, email, password string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			if password == "" {
				password, err = readPassword("password for new user: ")
				if err != nil {
					return err
				}
			}

			id, err := a.client.CreateUser(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Printf("user created: %s\n", id)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&email, "email", "", "email address")
	createCmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("email")

	cmd.AddCommand(createCmd)
	return cmd
}
