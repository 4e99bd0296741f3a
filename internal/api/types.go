package api

import (
	"fmt"
	"net/http"
)

// ── 实体类型 ──────────────────────────────────────────────────────────────────

// Role 标识消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// User is a registered account. Read-only from this client; accounts are
// created through the admin surface.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Agent is a conversational persona instantiated from an AgentMeta.
// Emotion and Favorability are server-side state that advances as
// conversations progress, so a fetched copy goes stale after every
// assistant reply.
type Agent struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Emotion      string  `json:"emotion"`
	Favorability float64 `json:"favorability"`
}

// AgentMeta is the immutable character template an Agent is created from.
type AgentMeta struct {
	ID                    string `json:"id,omitempty"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	CharacterDesign       string `json:"character_design"`
	ResponseRequirement   string `json:"response_requirement"`
	CharacterEmotionSplit string `json:"character_emotion_split"`
	Model                 string `json:"model"`
}

// Conversation belongs to exactly one agent. Title is null until the
// server names it.
type Conversation struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
}

// Message is one entry in a conversation. Only assistant messages carry
// Emotion/Favorability, reflecting the agent's state at the time that
// reply was generated. Favorability is a pointer so that zero can be
// told apart from absent.
type Message struct {
	Role         Role     `json:"role"`
	Content      string   `json:"content"`
	Timestamp    string   `json:"timestamp"`
	Emotion      string   `json:"emotion,omitempty"`
	Favorability *float64 `json:"favorability,omitempty"`
	Name         string   `json:"name,omitempty"`
}

// SendResult is the assistant reply returned by the send-message endpoint.
type SendResult struct {
	Content      string   `json:"content"`
	Emotion      string   `json:"emotion,omitempty"`
	Favorability *float64 `json:"favorability,omitempty"`
	Name         string   `json:"name,omitempty"`
}

// ── 错误类型 ──────────────────────────────────────────────────────────────────

// Error is the single error shape every failed operation is normalized to.
// Message comes from the response body when the server sent one, else the
// transport error text. Status is the HTTP status code, or 500 when no
// response was received at all.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// IsAuth reports whether the error indicates invalid credentials.
// 401/403 are the only statuses that may invalidate a stored session.
func (e *Error) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
