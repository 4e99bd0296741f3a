package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rpg-stage/stagectl/internal/api"
)

// ConversationView is the synchronization state behind the chat screen for
// one agent: the conversation list with its selection, the message
// sequence of the selected conversation, the input buffer, and the
// latest-known emotion/favorability derived from assistant replies.
//
// The latest values take display precedence over the agent's own fields;
// the agent copy is the baseline from instantiation time, the derived
// values track the newest assistant reply seen.
type ConversationView struct {
	mu sync.Mutex
	c  Client

	agentID string
	agent   api.Agent

	conversations []api.Conversation
	selected      string // conversation id, "" = none

	messages []api.Message
	input    string
	sending  bool

	latestEmotion      string
	latestFavorability *float64

	agentSeq loadSeq
	convSeq  loadSeq
	msgSeq   loadSeq
}

// NewConversationView creates the view state for one agent's chat screen.
func NewConversationView(c Client, agentID string) *ConversationView {
	return &ConversationView{c: c, agentID: agentID}
}

// LoadAgent refreshes the agent baseline (name, stored emotion/favorability).
func (v *ConversationView) LoadAgent(ctx context.Context) error {
	v.mu.Lock()
	seq := v.agentSeq.issue()
	v.mu.Unlock()

	agent, err := v.c.GetAgent(ctx, v.agentID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.agentSeq.current(seq) {
		v.agent = agent
	}
	return nil
}

// LoadConversations replaces the conversation list. When nothing is
// selected yet and the result is non-empty, the first entry in server
// order is selected; an existing selection is never reset by a reload.
func (v *ConversationView) LoadConversations(ctx context.Context) error {
	v.mu.Lock()
	seq := v.convSeq.issue()
	v.mu.Unlock()

	convs, err := v.c.ListConversations(ctx, v.agentID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.convSeq.current(seq) {
		return nil
	}
	v.conversations = convs
	if v.selected == "" && len(convs) > 0 {
		v.selected = convs[0].ID
	}
	return nil
}

// LoadMessages replaces the message sequence of the selected conversation,
// then derives the latest emotion/favorability: scan backward for the most
// recent assistant message and take whichever of the two fields it carries.
// A field the message lacks leaves the previous derived value untouched.
func (v *ConversationView) LoadMessages(ctx context.Context) error {
	v.mu.Lock()
	conv := v.selected
	seq := v.msgSeq.issue()
	v.mu.Unlock()
	if conv == "" {
		return nil
	}

	msgs, err := v.c.ListMessages(ctx, conv)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.msgSeq.current(seq) || v.selected != conv {
		return nil
	}
	v.messages = msgs
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != api.RoleAssistant {
			continue
		}
		if msgs[i].Emotion != "" {
			v.latestEmotion = msgs[i].Emotion
		}
		if msgs[i].Favorability != nil {
			v.latestFavorability = msgs[i].Favorability
		}
		break
	}
	return nil
}

// Select switches the active conversation. Messages keep showing the old
// conversation until the next LoadMessages replaces them.
func (v *ConversationView) Select(conversationID string) {
	v.mu.Lock()
	v.selected = conversationID
	v.mu.Unlock()
}

// CreateConversation asks the server for a new conversation, reloads the
// list, then selects the new id explicitly: the server may not order the
// new conversation first, so the reload's auto-select cannot be relied on.
// A reload failure does not undo the creation; the id is selected anyway
// and the error returned for surfacing.
func (v *ConversationView) CreateConversation(ctx context.Context) (string, error) {
	id, err := v.c.CreateConversation(ctx, v.agentID)
	if err != nil {
		return "", err
	}
	loadErr := v.LoadConversations(ctx)
	v.Select(id)
	return id, loadErr
}

// Send runs the optimistic send path for the current input buffer:
//
//  1. append a locally built user message and clear the input buffer
//  2. issue the send
//  3. success: append the assistant reply, update derived emotion/favorability
//  4. failure: run the undo captured at step 1 (remove exactly that one
//     message), restore the input buffer, return the error
//
// Net message-count delta is +2 on success and +0 on failure. The error is
// the send-failure channel; callers surface it separately from load errors.
func (v *ConversationView) Send(ctx context.Context) error {
	v.mu.Lock()
	content := strings.TrimSpace(v.input)
	if content == "" || v.selected == "" || v.sending {
		v.mu.Unlock()
		return nil
	}
	conv := v.selected
	v.sending = true
	v.input = ""
	undo := v.appendLocked(api.Message{
		Role:      api.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	v.mu.Unlock()

	res, err := v.c.SendMessage(ctx, conv, content)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.sending = false
	if err != nil {
		undo()
		v.input = content
		return err
	}

	v.messages = append(v.messages, api.Message{
		Role:         api.RoleAssistant,
		Content:      res.Content,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Emotion:      res.Emotion,
		Favorability: res.Favorability,
		Name:         res.Name,
	})
	if res.Emotion != "" {
		v.latestEmotion = res.Emotion
	}
	if res.Favorability != nil {
		v.latestFavorability = res.Favorability
	}
	return nil
}

// appendLocked appends msg and returns the exact inverse mutation.
// Callers must hold v.mu; the returned undo also requires it.
func (v *ConversationView) appendLocked(msg api.Message) func() {
	v.messages = append(v.messages, msg)
	return func() {
		if n := len(v.messages); n > 0 {
			v.messages = v.messages[:n-1]
		}
	}
}

// ── 读取访问器 ───────────────────────────────────────────────────────────────

func (v *ConversationView) AgentID() string { return v.agentID }

func (v *ConversationView) Agent() api.Agent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.agent
}

func (v *ConversationView) Conversations() []api.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]api.Conversation(nil), v.conversations...)
}

func (v *ConversationView) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

func (v *ConversationView) Messages() []api.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]api.Message(nil), v.messages...)
}

func (v *ConversationView) Sending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sending
}

func (v *ConversationView) Input() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

// SetInput replaces the input buffer. Ignored while a send is in flight,
// so the rollback's restored text cannot be clobbered by a late keystroke.
func (v *ConversationView) SetInput(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sending {
		return
	}
	v.input = s
}

// DisplayEmotion is the emotion to show: the latest derived value when one
// exists, else the agent baseline.
func (v *ConversationView) DisplayEmotion() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latestEmotion != "" {
		return v.latestEmotion
	}
	return v.agent.Emotion
}

// DisplayFavorability is the favorability to show, latest-known over baseline.
func (v *ConversationView) DisplayFavorability() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latestFavorability != nil {
		return *v.latestFavorability
	}
	return v.agent.Favorability
}
