package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the backend health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("backend unhealthy: %w", err)
			}
			fmt.Printf("ok (%s)\n", a.cfg.BaseURL)
			return nil
		},
	}
}
