package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpg-stage/stagectl/internal/state"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List and create agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentsList(cmd.Context())
		},
	}

	var metaID string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Instantiate an agent from an agent meta",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			id, err := a.client.CreateAgent(cmd.Context(), metaID)
			if err != nil {
				return err
			}
			fmt.Printf("agent created: %s\n", id)
			return nil
		},
	}
	createCmd.Flags().StringVar(&metaID, "meta", "", "agent meta id to instantiate")
	createCmd.MarkFlagRequired("meta")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentsList(cmd.Context())
		},
	})
	cmd.AddCommand(createCmd)

	return cmd
}

// runAgentsList is also the root command's default action: the roster is
// the home screen.
func runAgentsList(ctx context.Context) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	roster := state.NewRoster(a.client)
	if err := roster.LoadAgents(ctx); err != nil {
		return err
	}

	agents := roster.Agents()
	if len(agents) == 0 {
		fmt.Println("no agents yet; create one with `stagectl agents create --meta <id>`")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMOTION\tFAVORABILITY")
	for _, ag := range agents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", ag.ID, ag.Name, ag.Emotion, ag.Favorability)
	}
	return w.Flush()
}
