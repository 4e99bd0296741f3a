package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rpg-stage/stagectl/internal/state"
	"github.com/rpg-stage/stagectl/internal/tui"
)

func newChatCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat <agent-id>",
		Short: "Chat with an agent",
		Long: "Opens the interactive chat screen for one agent: conversation list,\n" +
			"message history, and the agent's current emotion and favorability.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useTUI := !plain && term.IsTerminal(int(os.Stdout.Fd()))

			// The TUI owns the terminal; logging stays quiet there.
			a, err := newApp(useTUI)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			view := state.NewConversationView(a.client, args[0])
			if useTUI {
				return tui.Run(view)
			}
			return tui.PlainChat(cmd.Context(), view)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "disable the TUI, use plain line mode")
	return cmd
}
