// Package state holds the per-view synchronization logic between the UI
// and the backend: fetch-and-replace loaders, conversation selection, and
// the optimistic send path with rollback. Nothing here touches the network
// directly; every call goes through the injected Client.
package state

import (
	"context"

	"github.com/rpg-stage/stagectl/internal/api"
)

// Client is the slice of the backend client the loaders consume.
// *api.Client satisfies it; tests substitute fakes.
type Client interface {
	ListAgents(ctx context.Context) ([]api.Agent, error)
	ListAgentMetas(ctx context.Context) ([]api.AgentMeta, error)
	ListUsers(ctx context.Context) ([]api.User, error)
	GetAgent(ctx context.Context, id string) (api.Agent, error)
	CreateConversation(ctx context.Context, agentID string) (string, error)
	ListConversations(ctx context.Context, agentID string) ([]api.Conversation, error)
	SendMessage(ctx context.Context, conversationID, content string) (api.SendResult, error)
	ListMessages(ctx context.Context, conversationID string) ([]api.Message, error)
}
