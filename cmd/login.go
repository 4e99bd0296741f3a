package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if email == "" {
				fmt.Print("email: ")
				if _, err := fmt.Scanln(&email); err != nil {
					return fmt.Errorf("read email: %w", err)
				}
			}
			if password == "" {
				password, err = readPassword("password: ")
				if err != nil {
					return err
				}
			}

			if err := a.sess.Login(cmd.Context(), a.client, email, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Println("logged in")
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			// Local state clears no matter what the server says.
			if err := a.sess.Logout(cmd.Context(), a.client); err != nil {
				fmt.Fprintf(os.Stderr, "warning: remote logout failed: %v\n", err)
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

// readPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read otherwise (pipes, CI).
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
