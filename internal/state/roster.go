package state

import (
	"context"
	"sync"

	"github.com/rpg-stage/stagectl/internal/api"
)

// Roster holds the agent and user lists for the roster views. The two
// loaders are independent: a load of one list never blocks or disturbs
// the other, and a failed load leaves the previous (stale but valid)
// list in place.
type Roster struct {
	mu sync.Mutex
	c  Client

	agents    []api.Agent
	agentsSeq loadSeq

	metas    []api.AgentMeta
	metasSeq loadSeq

	users    []api.User
	usersSeq loadSeq
}

// NewRoster creates a roster backed by c.
func NewRoster(c Client) *Roster {
	return &Roster{c: c}
}

// LoadAgents replaces the agent list with a fresh fetch.
func (r *Roster) LoadAgents(ctx context.Context) error {
	r.mu.Lock()
	seq := r.agentsSeq.issue()
	r.mu.Unlock()

	agents, err := r.c.ListAgents(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.agentsSeq.current(seq) {
		r.agents = agents
	}
	return nil
}

// LoadMetas replaces the agent meta list with a fresh fetch.
func (r *Roster) LoadMetas(ctx context.Context) error {
	r.mu.Lock()
	seq := r.metasSeq.issue()
	r.mu.Unlock()

	metas, err := r.c.ListAgentMetas(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metasSeq.current(seq) {
		r.metas = metas
	}
	return nil
}

// LoadUsers replaces the user list with a fresh fetch.
func (r *Roster) LoadUsers(ctx context.Context) error {
	r.mu.Lock()
	seq := r.usersSeq.issue()
	r.mu.Unlock()

	users, err := r.c.ListUsers(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usersSeq.current(seq) {
		r.users = users
	}
	return nil
}

// Agents returns the current agent list.
func (r *Roster) Agents() []api.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Agent(nil), r.agents...)
}

// Metas returns the current agent meta list.
func (r *Roster) Metas() []api.AgentMeta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.AgentMeta(nil), r.metas...)
}

// Users returns the current user list.
func (r *Roster) Users() []api.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.User(nil), r.users...)
}
