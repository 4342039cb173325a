package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbella/ava-cli/internal/application"
	"github.com/nbella/ava-cli/internal/version"
)

// fakeBackend is a minimal in-process stand-in for the assistant API.
type fakeBackend struct {
	mu      sync.Mutex
	revoked []string
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "hunter2" {
			writeBody(w, http.StatusUnauthorized, `{"detail":"invalid credentials"}`)
			return
		}
		writeBody(w, http.StatusOK, `{"access_token":"access-1","refresh_token":"refresh-1","user_info":{"name":"Nora"}}`)
	})

	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		b.revoked = append(b.revoked, body.RefreshToken)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			writeBody(w, http.StatusUnauthorized, `{"detail":"token expired"}`)
			return false
		}
		return true
	}

	mux.HandleFunc("/chat/send", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		writeBody(w, http.StatusOK, `{"session_id":"s1","response":"hello there","artifacts":[],"tools_used":[]}`)
	})

	mux.HandleFunc("/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		writeBody(w, http.StatusOK, `{"sessions":[{"session_id":"s1","message_count":2,"last_message":"hello there","updated_at":"2025-06-01T12:00:00Z"}]}`)
	})

	mux.HandleFunc("/chat/history/s1", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		writeBody(w, http.StatusOK, `{"session_id":"s1","messages":[{"role":"user","content":"hi","timestamp":"2025-06-01T12:00:00Z"},{"role":"assistant","content":"hello there","timestamp":"2025-06-01T12:00:01Z"}]}`)
	})

	return mux
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// setupCLI isolates the CLI in a throwaway home directory and points it
// at an in-process backend.
func setupCLI(t *testing.T) *fakeBackend {
	t.Helper()

	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("AVA_API_BASE_URL", server.URL)
	t.Setenv("AVA_WS_URL", "ws://127.0.0.1:1/chat/ws")

	return backend
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	var stderr bytes.Buffer

	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t)

	output, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, version.Version)
}

func TestLoginThenChat(t *testing.T) {
	setupCLI(t)

	output, err := runCLI(t, "login", "--email", "nora@example.com", "--password", "hunter2")
	require.NoError(t, err)
	assert.Contains(t, output, "Logged in as Nora.")

	output, err = runCLI(t, "chat", "hi", "--json")
	require.NoError(t, err)

	var state application.ChatState
	require.NoError(t, json.Unmarshal([]byte(output), &state))
	assert.Equal(t, "s1", state.SessionID)
	assert.False(t, state.Typing)
	require.NotEmpty(t, state.Messages)
	last := state.Messages[len(state.Messages)-1]
	assert.Equal(t, "hello there", last.Text)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "login", "--email", "nora@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestChatWithoutLoginFails(t *testing.T) {
	setupCLI(t)

	// No stored pair: the 401 cannot be refreshed and the send fails.
	_, err := runCLI(t, "chat", "hi", "--json")
	require.Error(t, err)
}

func TestSessionsAndHistory(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "login", "--email", "nora@example.com", "--password", "hunter2")
	require.NoError(t, err)

	output, err := runCLI(t, "sessions", "--json")
	require.NoError(t, err)
	assert.Contains(t, output, "s1")
	assert.Contains(t, output, "hello there")

	output, err = runCLI(t, "history", "s1", "--json")
	require.NoError(t, err)

	var state application.ChatState
	require.NoError(t, json.Unmarshal([]byte(output), &state))
	assert.Equal(t, "s1", state.SessionID)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hi", state.Messages[0].Text)
}

func TestLogoutRevokesAndClears(t *testing.T) {
	backend := setupCLI(t)

	_, err := runCLI(t, "login", "--email", "nora@example.com", "--password", "hunter2")
	require.NoError(t, err)

	output, err := runCLI(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, output, "Logged out.")

	backend.mu.Lock()
	revoked := append([]string(nil), backend.revoked...)
	backend.mu.Unlock()
	assert.Equal(t, []string{"refresh-1"}, revoked)

	_, err = runCLI(t, "chat", "hi", "--json")
	require.Error(t, err, "the cleared pair must not authenticate further sends")
}

func TestProfileAddListUse(t *testing.T) {
	setupCLI(t)

	output, err := runCLI(t, "profile", "add", "local", "--api-url", "http://localhost:8000")
	require.NoError(t, err)
	assert.Contains(t, output, "Saved profile local.")

	output, err = runCLI(t, "profile", "add", "staging", "--api-url", "https://staging.example.com", "--ws-url", "wss://staging.example.com/chat/ws")
	require.NoError(t, err)
	assert.Contains(t, output, "Saved profile staging.")

	output, err = runCLI(t, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "local")
	assert.Contains(t, output, "staging")

	output, err = runCLI(t, "profile", "use", "staging")
	require.NoError(t, err)
	assert.Contains(t, output, "Default profile is now staging.")

	_, err = runCLI(t, "profile", "use", "missing")
	require.Error(t, err)
}

func TestChatRequiresSomeInput(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "chat", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}

func TestResolveSendInputRejectsConflictingFlags(t *testing.T) {
	_, _, _, err := resolveSendInput("m", "https://example.com", "cat.jpg", "image", "image/jpeg")
	require.Error(t, err)

	text, mode, media, err := resolveSendInput("caption", "", "cat.jpg", "image", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "caption", text)
	assert.Equal(t, application.ModeMedia, mode)
	require.NotNil(t, media)
	assert.Equal(t, "cat.jpg", media.Name)

	text, mode, media, err = resolveSendInput("", "https://example.com", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", text)
	assert.Equal(t, application.ModeURL, mode)
	assert.Nil(t, media)
}
