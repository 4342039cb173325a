package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbella/ava-cli/internal/domain"
)

type staticTokenStore struct {
	creds domain.Credentials
}

func (s staticTokenStore) Save(context.Context, domain.Credentials) error { return nil }

func (s staticTokenStore) Load(context.Context) (domain.Credentials, error) {
	return s.creds, nil
}

func (s staticTokenStore) Clear(context.Context) error { return nil }

func authenticatedStore() staticTokenStore {
	return staticTokenStore{creds: domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}}
}

// streamServer upgrades connections and replays scripted frames, then
// closes normally.
func streamServer(t *testing.T, frames []string, gotToken chan<- string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotToken != nil {
			gotToken <- r.URL.Query().Get("token")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}))
	t.Cleanup(server.Close)

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConnectAttachesTokenAndDispatchesFrames(t *testing.T) {
	t.Parallel()

	frames := []string{
		`{"type":"status","message":"thinking"}`,
		`{"type":"transcript","text":"hel","is_final":false}`,
		`{"type":"transcript","text":"hello","is_final":true}`,
		`{"type":"camera_analysis","description":"a desk"}`,
		`{"type":"shrug","whatever":1}`,
		`this is not json`,
		`{"type":"error","detail":"model overloaded"}`,
		`{"type":"complete","response":{"session_id":"s1","response":"done","artifacts":[{"id":"a1","type":"image","name":"plot.png","download_url":"http://x/a1"}],"tools_used":["search"]}}`,
	}

	gotToken := make(chan string, 1)
	server := streamServer(t, frames, gotToken)

	var mu sync.Mutex
	var events []string
	var turn domain.ChatTurn
	record := func(event string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	}

	done := make(chan struct{})

	client := NewClient(wsURL(server), authenticatedStore())
	err := client.Connect(context.Background(), Callbacks{
		OnStatus:     func(message string) { record("status:" + message) },
		OnTranscript: func(text string, isFinal bool) { record("transcript:" + text) },
		OnCameraAnalysis: func(description string) {
			record("camera:" + description)
		},
		OnServerError: func(detail string) { record("error:" + detail) },
		OnComplete: func(got domain.ChatTurn) {
			mu.Lock()
			turn = got
			mu.Unlock()
			record("complete")
		},
		OnDisconnect: func(err error) {
			assert.NoError(t, err)
			close(done)
		},
	})
	require.NoError(t, err)
	assert.True(t, client.Connected())

	assert.Equal(t, "access-1", <-gotToken)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for disconnect")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"status:thinking",
		"transcript:hel",
		"transcript:hello",
		"camera:a desk",
		"error:model overloaded",
		"complete",
	}, events, "frames dispatch in arrival order; unknown and malformed frames are dropped")

	assert.Equal(t, "s1", turn.SessionID)
	assert.Equal(t, "done", turn.Response)
	require.Len(t, turn.Artifacts, 1)
	assert.Equal(t, "plot.png", turn.Artifacts[0].Name)
	assert.Equal(t, []string{"search"}, turn.Tools)
}

func TestConnectRequiresAccessToken(t *testing.T) {
	t.Parallel()

	client := NewClient("ws://localhost:1", staticTokenStore{})
	err := client.Connect(context.Background(), Callbacks{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, client.Connected())
}

func TestConnectFailsAfterDialTimeout(t *testing.T) {
	t.Parallel()

	// Never upgrades, never responds: the dial must give up on its own.
	hang := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-hang
	}))
	t.Cleanup(func() {
		close(hang)
		server.Close()
	})

	client := NewClient(wsURL(server), authenticatedStore())
	client.DialTimeout = 50 * time.Millisecond

	start := time.Now()
	err := client.Connect(context.Background(), Callbacks{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, client.Connected())
}

func TestSendersDropWhileDisconnected(t *testing.T) {
	t.Parallel()

	client := NewClient("ws://localhost:1", authenticatedStore())

	// None of these may block, error, or panic without a connection.
	client.SendText("hello")
	client.SendSpeechStart()
	client.SendSpeechAudio("YWJj")
	client.SendSpeechEnd()
	client.SendCameraFrame("ZGVm")
	assert.False(t, client.Connected())
}

func TestSendTextReachesServerWhileConnected(t *testing.T) {
	t.Parallel()

	received := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		received <- string(payload)
	}))
	t.Cleanup(server.Close)

	client := NewClient(wsURL(server), authenticatedStore())
	require.NoError(t, client.Connect(context.Background(), Callbacks{}))

	client.SendText("hello")

	select {
	case payload := <-received:
		assert.JSONEq(t, `{"type":"text","text":"hello"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestDisconnectReportsNilError(t *testing.T) {
	t.Parallel()

	blockServer := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		// Keep the server side open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		close(blockServer)
	}))
	t.Cleanup(server.Close)

	done := make(chan error, 1)
	client := NewClient(wsURL(server), authenticatedStore())
	require.NoError(t, client.Connect(context.Background(), Callbacks{
		OnDisconnect: func(err error) { done <- err },
	}))

	client.Disconnect()

	select {
	case err := <-done:
		assert.NoError(t, err, "a locally requested close is not a failure")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}
	assert.False(t, client.Connected())

	select {
	case <-blockServer:
	case <-time.After(5 * time.Second):
		t.Fatal("server never observed the close")
	}
}

func TestSecondConnectReplacesCallbacks(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		<-release
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status","message":"ready"}`)))

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}))
	t.Cleanup(server.Close)

	first := make(chan string, 1)
	second := make(chan string, 1)
	done := make(chan struct{})

	client := NewClient(wsURL(server), authenticatedStore())
	require.NoError(t, client.Connect(context.Background(), Callbacks{
		OnStatus: func(message string) { first <- message },
	}))

	// Re-connecting while live swaps subscribers without redialing.
	require.NoError(t, client.Connect(context.Background(), Callbacks{
		OnStatus:     func(message string) { second <- message },
		OnDisconnect: func(error) { close(done) },
	}))

	close(release)

	select {
	case message := <-second:
		assert.Equal(t, "ready", message)
	case message := <-first:
		t.Fatalf("frame delivered to replaced callbacks: %q", message)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for status frame")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for disconnect")
	}
}

func TestBuildStreamURLValidation(t *testing.T) {
	t.Parallel()

	endpoint, err := buildStreamURL("ws://localhost:8000/chat/ws", "tok en")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/chat/ws?token=tok+en", endpoint)

	_, err = buildStreamURL("", "t")
	assert.Error(t, err)

	_, err = buildStreamURL("http://localhost:8000/chat/ws", "t")
	assert.Error(t, err)
}
