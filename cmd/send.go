package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpg-stage/stagectl/internal/state"
)

func newSendCmd() *cobra.Command {
	var agentID, conversationID, message string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single message non-interactively",
		Example: `  stagectl send --agent ag_123 -m "你好"
  stagectl send --agent ag_123 --conversation cv_456 -m "继续"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			ctx := cmd.Context()
			view := state.NewConversationView(a.client, agentID)
			if err := view.LoadAgent(ctx); err != nil {
				return err
			}

			if conversationID != "" {
				view.Select(conversationID)
			} else {
				// Reuse the newest conversation, or start one.
				if err := view.LoadConversations(ctx); err != nil {
					return err
				}
				if view.Selected() == "" {
					if _, err := view.CreateConversation(ctx); err != nil {
						return err
					}
				}
			}

			view.SetInput(message)
			if err := view.Send(ctx); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}

			msgs := view.Messages()
			if len(msgs) > 0 {
				last := msgs[len(msgs)-1]
				fmt.Println(last.Content)
			}
			fmt.Printf("[情绪: %s, 好感度: %g]\n", view.DisplayEmotion(), view.DisplayFavorability())
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent id")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id (default: newest, created when none exist)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message content")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("message")

	return cmd
}
