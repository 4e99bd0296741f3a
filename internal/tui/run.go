package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rpg-stage/stagectl/internal/state"
)

// Run starts the chat TUI in alt-screen mode and blocks until the user
// quits.
func Run(view *state.ConversationView) error {
	p := tea.NewProgram(NewModel(view), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
