// Package session 管理本地认证状态：token 的持久化、启动时校验、登录与登出。
// Manager 是进程内唯一的会话权威；api 客户端通过 TokenSource 在每次请求时
// 读取当前 token。
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rpg-stage/stagectl/internal/api"
)

// State is the session lifecycle state.
type State int

const (
	// StateUnauthenticated: no token held, login required.
	StateUnauthenticated State = iota

	// StateAuthenticated: token held and confirmed by a probe or a login.
	StateAuthenticated

	// StateUnverified: a stored token exists but the startup probe failed
	// for a non-auth reason (network, 5xx). The token is kept; requests
	// may still succeed once the backend is reachable again.
	StateUnverified
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnverified:
		return "unverified"
	default:
		return "unauthenticated"
	}
}

// API is the slice of the backend client the session lifecycle needs.
// ListAgents doubles as the startup validation probe.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context) error
	ListAgents(ctx context.Context) ([]api.Agent, error)
}

// Manager owns the in-memory token and keeps it consistent with the
// durable store: whenever state is Authenticated or Unverified the store
// holds the same token, and both are updated inside one locked section.
type Manager struct {
	mu    sync.Mutex
	store TokenStore
	token string
	state State
	log   *zap.Logger
}

// NewManager loads any stored token into memory. The session starts
// Unverified when a token exists; call Resume to settle the state.
func NewManager(store TokenStore, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	token, err := store.Get()
	if err != nil {
		return nil, err
	}
	m := &Manager{store: store, token: token, log: log}
	if token != "" {
		m.state = StateUnverified
	}
	return m, nil
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether a confirmed session is held.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// Resume validates a stored token by issuing one authenticated probe.
// A confirmed 401/403 discards the token; any other failure keeps it and
// leaves the session Unverified, so a network blip never forces re-login.
func (m *Manager) Resume(ctx context.Context, c API) (State, error) {
	if m.Token() == "" {
		m.setState(StateUnauthenticated)
		return StateUnauthenticated, nil
	}

	_, err := c.ListAgents(ctx)
	if err == nil {
		m.setState(StateAuthenticated)
		return StateAuthenticated, nil
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.IsAuth() {
		m.log.Info("stored session rejected, discarding token", zap.Int("status", apiErr.Status))
		m.drop()
		return StateUnauthenticated, nil
	}

	m.log.Warn("session probe failed, keeping stored token", zap.Error(err))
	m.setState(StateUnverified)
	return StateUnverified, err
}

// Login exchanges credentials for a token. Either the token is persisted
// and the session becomes Authenticated, or nothing changes and the error
// is returned.
func (m *Manager) Login(ctx context.Context, c API, email, password string) error {
	token, err := c.Login(ctx, email, password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Set(token); err != nil {
		return err
	}
	m.token = token
	m.state = StateAuthenticated
	return nil
}

// Logout is best effort remotely, unconditional locally: the token is
// cleared even when the DELETE fails, and the remote error is returned
// afterwards for reporting.
func (m *Manager) Logout(ctx context.Context, c API) error {
	var remoteErr error
	if m.Token() != "" {
		remoteErr = c.Logout(ctx)
	}
	m.drop()
	return remoteErr
}

// Invalidate discards the session without a remote call, for callers that
// detect a rejected token mid-flight.
func (m *Manager) Invalidate() {
	m.drop()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Clear(); err != nil {
		// The in-memory session still ends; a stale row only means one
		// extra probe on next start.
		m.log.Warn("clear stored token", zap.Error(err))
	}
	m.token = ""
	m.state = StateUnauthenticated
}
