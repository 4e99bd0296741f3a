package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpg-stage/stagectl/internal/api"
)

func TestRosterLoadAgentsReplacesList(t *testing.T) {
	f := &fakeClient{agents: []api.Agent{{ID: "ag_1", Name: "小樱"}}}
	r := NewRoster(f)

	require.NoError(t, r.LoadAgents(context.Background()))
	require.Len(t, r.Agents(), 1)

	f.agents = []api.Agent{{ID: "ag_1"}, {ID: "ag_2"}}
	require.NoError(t, r.LoadAgents(context.Background()))
	assert.Len(t, r.Agents(), 2)
}

func TestRosterFailedLoadKeepsPreviousList(t *testing.T) {
	f := &fakeClient{agents: []api.Agent{{ID: "ag_1"}}}
	r := NewRoster(f)
	require.NoError(t, r.LoadAgents(context.Background()))

	f.onListAgents = func() ([]api.Agent, error) {
		return nil, &api.Error{Message: "backend down", Status: 500}
	}
	err := r.LoadAgents(context.Background())
	require.Error(t, err)

	agents := r.Agents()
	require.Len(t, agents, 1, "stale list is better than an empty one")
	assert.Equal(t, "ag_1", agents[0].ID)
}

func TestRosterLoadMetas(t *testing.T) {
	f := &fakeClient{metas: []api.AgentMeta{{ID: "am_1", Name: "小樱", Model: "gpt-4o"}}}
	r := NewRoster(f)

	require.NoError(t, r.LoadMetas(context.Background()))
	metas := r.Metas()
	require.Len(t, metas, 1)
	assert.Equal(t, "am_1", metas[0].ID)
}

func TestRosterUsersIndependentOfAgents(t *testing.T) {
	f := &fakeClient{
		agents: []api.Agent{{ID: "ag_1"}},
		users:  []api.User{{ID: "us_1", Name: "alice"}},
	}
	r := NewRoster(f)

	require.NoError(t, r.LoadUsers(context.Background()))
	assert.Len(t, r.Users(), 1)
	assert.Empty(t, r.Agents(), "loading users must not touch agents")
}

func TestRosterStaleAgentResponseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})

	f := &fakeClient{}
	call := 0
	f.onListAgents = func() ([]api.Agent, error) {
		f.mu.Lock()
		call++
		n := call
		f.mu.Unlock()
		if n == 1 {
			close(entered)
			<-gate
			return []api.Agent{{ID: "ag_old"}}, nil
		}
		return []api.Agent{{ID: "ag_new"}}, nil
	}

	r := NewRoster(f)
	done := make(chan error, 1)
	go func() { done <- r.LoadAgents(context.Background()) }()
	<-entered

	require.NoError(t, r.LoadAgents(context.Background()))
	close(gate)
	require.NoError(t, <-done)

	agents := r.Agents()
	require.Len(t, agents, 1)
	assert.Equal(t, "ag_new", agents[0].ID)
}
