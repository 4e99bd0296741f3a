package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpg-stage/stagectl/internal/api"
	"github.com/rpg-stage/stagectl/internal/state"
)

// stubClient serves canned data to a ConversationView under test.
type stubClient struct {
	convs   []api.Conversation
	sendErr error
}

func (s *stubClient) ListAgents(ctx context.Context) ([]api.Agent, error) { return nil, nil }
func (s *stubClient) ListAgentMetas(ctx context.Context) ([]api.AgentMeta, error) {
	return nil, nil
}
func (s *stubClient) ListUsers(ctx context.Context) ([]api.User, error) { return nil, nil }
func (s *stubClient) GetAgent(ctx context.Context, id string) (api.Agent, error) {
	return api.Agent{ID: id, Name: "小樱"}, nil
}
func (s *stubClient) CreateConversation(ctx context.Context, agentID string) (string, error) {
	return "cv_new", nil
}
func (s *stubClient) ListConversations(ctx context.Context, agentID string) ([]api.Conversation, error) {
	return s.convs, nil
}
func (s *stubClient) SendMessage(ctx context.Context, conversationID, content string) (api.SendResult, error) {
	return api.SendResult{Content: "ok"}, s.sendErr
}
func (s *stubClient) ListMessages(ctx context.Context, conversationID string) ([]api.Message, error) {
	return nil, nil
}

func conv(id string) api.Conversation { return api.Conversation{ID: id} }

func TestNeighborConversationWraps(t *testing.T) {
	stub := &stubClient{convs: []api.Conversation{conv("cv_a"), conv("cv_b"), conv("cv_c")}}
	view := state.NewConversationView(stub, "ag_1")
	require.NoError(t, view.LoadConversations(context.Background()))
	view.Select("cv_c")

	m := NewModel(view)
	assert.Equal(t, "cv_a", m.neighborConversation(true), "forward wraps to the first")
	assert.Equal(t, "cv_b", m.neighborConversation(false))
}

func TestSendFailureRestoresInputField(t *testing.T) {
	stub := &stubClient{sendErr: &api.Error{Message: "boom", Status: 500}}
	view := state.NewConversationView(stub, "ag_1")
	view.Select("cv_1")
	view.SetInput("hello")
	require.Error(t, view.Send(context.Background()))

	m := NewModel(view)
	updated, _ := m.Update(sendDoneMsg{err: &api.Error{Message: "boom", Status: 500}})
	m = updated.(Model)

	assert.Equal(t, "hello", m.textinput.Value(), "rolled-back text goes back into the field")
	assert.Contains(t, m.sendErr, "boom")
}

func TestEnterWithoutSelectionIsNoop(t *testing.T) {
	view := state.NewConversationView(&stubClient{}, "ag_1")
	m := NewModel(view)
	m.textinput.SetValue("hello")

	cmd, handled := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, handled)
	assert.Nil(t, cmd, "nothing to send to without a conversation")
}

func TestEscDismissesSendErrorBeforeQuitting(t *testing.T) {
	m := NewModel(state.NewConversationView(&stubClient{}, "ag_1"))
	m.sendErr = "发送失败"

	cmd, handled := m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.Empty(t, m.sendErr)
	assert.False(t, m.quitting)
}

func TestRenderMessageNameFallback(t *testing.T) {
	out := renderMessage(api.Message{Role: api.RoleAssistant, Content: "你好", Emotion: "happy"}, "小樱", 40)
	assert.Contains(t, out, "小樱")
	assert.Contains(t, out, "[happy]")
	assert.Contains(t, out, "你好")

	out = renderMessage(api.Message{Role: api.RoleAssistant, Content: "hi", Name: "旁白"}, "小樱", 40)
	assert.Contains(t, out, "旁白")

	out = renderMessage(api.Message{Role: api.RoleUser, Content: "hey"}, "小樱", 40)
	assert.Contains(t, out, "你")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefghij", 5))
	assert.Equal(t, "abc", truncate("abc", 2), "width too small to ellipsize")
}
