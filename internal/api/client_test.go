package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenSource with a swappable token.
type staticTokens struct{ token string }

func (s *staticTokens) Token() string { return s.token }

func TestBearerTokenReadAtCallTime(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	tokens := &staticTokens{}
	c := New(srv.URL, tokens)

	_, err := c.ListAgents(context.Background())
	require.NoError(t, err)

	// Token set after client construction must still be attached.
	tokens.token = "tok-123"
	_, err = c.ListAgents(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Empty(t, got[0])
	assert.Equal(t, "Bearer tok-123", got[1])
}

func TestLoginFormEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/session", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "a@b.c", r.PostForm.Get("email"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))
		w.Write([]byte("tok-abc"))
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	token, err := c.Login(context.Background(), "a@b.c", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}

func TestLoginJSONQuotedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`"tok-quoted"`))
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	token, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-quoted", token)
}

func TestCreateAgentMetaFormFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agent_metas", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "小樱", r.PostForm.Get("name"))
		assert.Equal(t, "design", r.PostForm.Get("character_design"))
		assert.Equal(t, "req", r.PostForm.Get("response_requirement"))
		assert.Equal(t, "split", r.PostForm.Get("character_emotion_split"))
		assert.Equal(t, "gpt-4o", r.PostForm.Get("model"))
		json.NewEncoder(w).Encode(map[string]string{"agent_meta_id": "am_1"})
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	id, err := c.CreateAgentMeta(context.Background(), AgentMeta{
		Name:                  "小樱",
		Description:           "desc",
		CharacterDesign:       "design",
		ResponseRequirement:   "req",
		CharacterEmotionSplit: "split",
		Model:                 "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "am_1", id)
}

func TestSendMessageJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations/cv_1/messages", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "你好", body["content"])
		json.NewEncoder(w).Encode(map[string]any{
			"content": "hi", "emotion": "happy", "favorability": 5,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	res, err := c.SendMessage(context.Background(), "cv_1", "你好")
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Content)
	assert.Equal(t, "happy", res.Emotion)
	require.NotNil(t, res.Favorability)
	assert.Equal(t, 5.0, *res.Favorability)
}

func TestErrorFromResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("agent not found"))
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	_, err := c.GetAgent(context.Background(), "nope")
	require.Error(t, err)

	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "agent not found", apiErr.Message)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.False(t, apiErr.IsAuth())
}

func TestErrorEmptyBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	_, err := c.ListAgents(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusText(http.StatusUnauthorized), apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.True(t, apiErr.IsAuth())
}

func TestTransportFailureDefaultsTo500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, &staticTokens{})
	err := c.Health(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{})
	_, err := c.ListAgents(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Message, "malformed response")
}

func TestLogoutUsesDelete(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
	}))
	defer srv.Close()

	c := New(srv.URL, &staticTokens{token: "t"})
	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/auth/session", path)
}
