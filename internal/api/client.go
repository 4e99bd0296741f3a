// Package api 是 RPG Stage 后端的类型化 HTTP 客户端。
// 所有操作单次请求、不重试；任何失败都归一化为 *Error{Message, Status}。
// 认证 token 在每次请求发出时从 TokenSource 读取，而不是在构造时捕获。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const errBodyLimit = 64 * 1024 // cap on error bodies pulled into Error.Message

// TokenSource yields the current bearer token, or "" when unauthenticated.
// The session manager implements this; the client never stores tokens.
type TokenSource interface {
	Token() string
}

// Client issues typed calls against a configured base URL.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (tests, custom transports).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger attaches a zap logger; requests are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the backend at baseURL. tokens may not be nil.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
		tokens:  tokens,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── 认证 ─────────────────────────────────────────────────────────────────────

// Login exchanges credentials for an opaque session token.
// The token is returned to the caller; persisting it is the session
// manager's job.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	body, err := c.do(ctx, http.MethodPost, "/auth/session", formBody(form))
	if err != nil {
		return "", err
	}
	return parseToken(body), nil
}

// Logout invalidates the session server-side. Callers clear local state
// regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/auth/session", nil)
	return err
}

// ── 用户 ─────────────────────────────────────────────────────────────────────

func (c *Client) CreateUser(ctx context.Context, name, email, password string) (string, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("password", password)

	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/users", formBody(form), &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ── Agent 模板与实例 ─────────────────────────────────────────────────────────

func (c *Client) CreateAgentMeta(ctx context.Context, meta AgentMeta) (string, error) {
	form := url.Values{}
	form.Set("name", meta.Name)
	form.Set("description", meta.Description)
	form.Set("character_design", meta.CharacterDesign)
	form.Set("response_requirement", meta.ResponseRequirement)
	form.Set("character_emotion_split", meta.CharacterEmotionSplit)
	form.Set("model", meta.Model)

	var out struct {
		AgentMetaID string `json:"agent_meta_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/agent_metas", formBody(form), &out); err != nil {
		return "", err
	}
	return out.AgentMetaID, nil
}

func (c *Client) ListAgentMetas(ctx context.Context) ([]AgentMeta, error) {
	var metas []AgentMeta
	if err := c.doJSON(ctx, http.MethodGet, "/agent_metas", nil, &metas); err != nil {
		return nil, err
	}
	return metas, nil
}

func (c *Client) CreateAgent(ctx context.Context, agentMetadataID string) (string, error) {
	form := url.Values{}
	form.Set("agent_metadata_id", agentMetadataID)

	var out struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/agents", formBody(form), &out); err != nil {
		return "", err
	}
	return out.AgentID, nil
}

func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.doJSON(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *Client) GetAgent(ctx context.Context, id string) (Agent, error) {
	var agent Agent
	err := c.doJSON(ctx, http.MethodGet, "/agents/"+url.PathEscape(id), nil, &agent)
	return agent, err
}

// ── 对话与消息 ───────────────────────────────────────────────────────────────

func (c *Client) CreateConversation(ctx context.Context, agentID string) (string, error) {
	var out struct {
		ConversationID string `json:"conversation_id"`
	}
	path := "/agents/" + url.PathEscape(agentID) + "/conversations"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

func (c *Client) ListConversations(ctx context.Context, agentID string) ([]Conversation, error) {
	var convs []Conversation
	path := "/agents/" + url.PathEscape(agentID) + "/conversations"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// SendMessage posts user content to a conversation and returns the
// assistant reply. Unlike the simple-create endpoints this one takes a
// JSON body; the encoding is part of the server contract.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (SendResult, error) {
	payload, _ := json.Marshal(map[string]string{"content": content})

	var out SendResult
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	err := c.doJSON(ctx, http.MethodPost, path, jsonBody(payload), &out)
	return out, err
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Health probes the backend without authentication semantics.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// ── 请求管线 ─────────────────────────────────────────────────────────────────

type reqBody struct {
	contentType string
	data        []byte
}

func formBody(v url.Values) *reqBody {
	return &reqBody{contentType: "application/x-www-form-urlencoded", data: []byte(v.Encode())}
}

func jsonBody(data []byte) *reqBody {
	return &reqBody{contentType: "application/json", data: data}
}

// do issues a single request and returns the raw response body.
// Failure normalization happens here and nowhere else:
//   - transport failure        → Error{transport text, 500}
//   - non-2xx                  → Error{body text or status text, code}
func (c *Client) do(ctx context.Context, method, path string, body *reqBody) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, &Error{Message: err.Error(), Status: http.StatusInternalServerError}
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return nil, &Error{Message: err.Error(), Status: http.StatusInternalServerError}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", reqID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > errBodyLimit {
			data = data[:errBodyLimit]
		}
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Message: msg, Status: resp.StatusCode}
	}
	if readErr != nil {
		return nil, &Error{Message: readErr.Error(), Status: http.StatusInternalServerError}
	}
	return data, nil
}

// doJSON issues a request and decodes the 2xx body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body *reqBody, out any) error {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Message: "malformed response: " + err.Error(), Status: http.StatusInternalServerError}
	}
	return nil
}

// parseToken extracts the opaque token from the login response. The server
// returns it as the bare body; tolerate a JSON-quoted string as well.
func parseToken(body []byte) string {
	s := strings.TrimSpace(string(body))
	var quoted string
	if err := json.Unmarshal([]byte(s), &quoted); err == nil {
		return quoted
	}
	return s
}
