package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpg-stage/stagectl/internal/api"
	"github.com/rpg-stage/stagectl/internal/state"
)

func newMetasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metas",
		Short: "Manage agent metas (character templates)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetasList(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agent metas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetasList(cmd)
		},
	})

	var meta api.AgentMeta
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent meta",
		Example: `  stagectl metas create --name 小樱 --model gpt-4o \
      --description "温柔的精灵法师" \
      --character-design "..." --response-requirement "..." --emotion-split "..."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			id, err := a.client.CreateAgentMeta(cmd.Context(), meta)
			if err != nil {
				return err
			}
			fmt.Printf("agent meta created: %s\n", id)
			return nil
		},
	}

	createCmd.Flags().StringVar(&meta.Name, "name", "", "character name")
	createCmd.Flags().StringVar(&meta.Description, "description", "", "short description")
	createCmd.Flags().StringVar(&meta.CharacterDesign, "character-design", "", "character design prompt")
	createCmd.Flags().StringVar(&meta.ResponseRequirement, "response-requirement", "", "response style requirement")
	createCmd.Flags().StringVar(&meta.CharacterEmotionSplit, "emotion-split", "", "emotion split definition")
	createCmd.Flags().StringVar(&meta.Model, "model", "", "backing model")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("model")

	cmd.AddCommand(createCmd)
	return cmd
}

func runMetasList(cmd *cobra.Command) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}

	roster := state.NewRoster(a.client)
	if err := roster.LoadMetas(cmd.Context()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tDESCRIPTION")
	for _, m := range roster.Metas() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Model, m.Description)
	}
	return w.Flush()
}
