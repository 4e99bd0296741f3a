package tui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rpg-stage/stagectl/internal/api"
	"github.com/rpg-stage/stagectl/internal/state"
)

// PlainChat runs the chat loop with plain terminal output (fmt.Print /
// bufio.Scanner). Used when stdout is not a terminal or TUI mode is
// disabled.
func PlainChat(ctx context.Context, view *state.ConversationView) error {
	if err := view.LoadAgent(ctx); err != nil {
		return err
	}
	if err := view.LoadConversations(ctx); err != nil {
		return err
	}
	if view.Selected() == "" {
		if _, err := view.CreateConversation(ctx); err != nil {
			return err
		}
	}
	if err := view.LoadMessages(ctx); err != nil {
		return err
	}

	agent := view.Agent()
	fmt.Printf("%s — 情绪: %s, 好感度: %g\n", agent.Name, orDash(view.DisplayEmotion()), view.DisplayFavorability())
	fmt.Println("commands: /new  /list  /switch <n>  /quit")
	printHistory(view)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done, err := plainCommand(ctx, view, line); done {
				return err
			}
			continue
		}

		view.SetInput(line)
		if err := view.Send(ctx); err != nil {
			// Send failures go to their own surface; the rolled-back
			// input stays available in the view's buffer.
			fmt.Fprintf(os.Stderr, "发送失败: %v\n(输入已恢复，重新回车即可重试)\n", err)
			continue
		}
		msgs := view.Messages()
		if len(msgs) > 0 {
			printMessage(msgs[len(msgs)-1], view.Agent().Name)
		}
		fmt.Printf("[情绪: %s, 好感度: %g]\n", orDash(view.DisplayEmotion()), view.DisplayFavorability())
	}
}

// plainCommand handles slash commands. Returns done=true when the loop
// should exit.
func plainCommand(ctx context.Context, view *state.ConversationView, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		if _, err := view.CreateConversation(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false, nil
		}
		if err := view.LoadMessages(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		fmt.Println("(新对话已创建)")

	case "/list":
		for i, c := range view.Conversations() {
			marker := " "
			if c.ID == view.Selected() {
				marker = "*"
			}
			title := "新对话"
			if c.Title != nil && *c.Title != "" {
				title = *c.Title
			}
			fmt.Printf("%s %2d. %s\n", marker, i+1, title)
		}

	case "/switch":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /switch <n>")
			return false, nil
		}
		n, err := strconv.Atoi(fields[1])
		convs := view.Conversations()
		if err != nil || n < 1 || n > len(convs) {
			fmt.Fprintln(os.Stderr, "no such conversation")
			return false, nil
		}
		view.Select(convs[n-1].ID)
		if err := view.LoadMessages(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false, nil
		}
		printHistory(view)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", fields[0])
	}
	return false, nil
}

func printHistory(view *state.ConversationView) {
	agentName := view.Agent().Name
	for _, msg := range view.Messages() {
		printMessage(msg, agentName)
	}
}

func printMessage(msg api.Message, agentName string) {
	switch msg.Role {
	case api.RoleUser:
		fmt.Printf("你: %s\n", msg.Content)
	default:
		name := msg.Name
		if name == "" {
			name = agentName
		}
		if name == "" {
			name = "assistant"
		}
		if msg.Emotion != "" {
			fmt.Printf("%s [%s]: %s\n", name, msg.Emotion, msg.Content)
		} else {
			fmt.Printf("%s: %s\n", name, msg.Content)
		}
	}
}
