package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

const defaultDialTimeout = 10 * time.Second

var ErrNotAuthenticated = fmt.Errorf("stream: no access token available: %w", domain.ErrNotAuthenticated)

// Callbacks is the subscriber bundle registered at connect time.
// Exactly one bundle is active per connection; a later Connect call
// replaces it rather than adding a second subscriber, which would
// silently double-deliver frames. Any callback may be nil.
type Callbacks struct {
	OnStatus         func(message string)
	OnTranscript     func(text string, isFinal bool)
	OnCameraAnalysis func(description string)
	OnComplete       func(turn domain.ChatTurn)
	OnServerError    func(detail string)
	OnDisconnect     func(err error)
}

// Client owns at most one live WebSocket at a time. Callers never see
// the socket handle; they talk through the typed senders and the
// callback bundle. Live speech and camera frames are lossy real-time
// streams, so senders drop frames silently while disconnected instead
// of failing the caller.
type Client struct {
	URL         string
	DialTimeout time.Duration
	Dialer      *websocket.Dialer
	Logger      *log.Logger

	tokens ports.TokenStore

	mu        sync.Mutex
	conn      *websocket.Conn
	callbacks Callbacks
	connected bool
	closing   bool
}

func NewClient(wsURL string, tokens ports.TokenStore) *Client {
	return &Client{URL: wsURL, tokens: tokens}
}

// Connect dials the streaming endpoint and resolves once the handshake
// completes, or fails after DialTimeout if no open ever arrives. While
// already connected it only replaces the callback bundle.
func (c *Client) Connect(ctx context.Context, callbacks Callbacks) error {
	c.mu.Lock()
	if c.connected {
		c.callbacks = callbacks
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	creds, err := c.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return ErrNotAuthenticated
	}

	// The WebSocket handshake has no header-injection point on this
	// backend; the token rides as a query parameter.
	endpoint, err := buildStreamURL(c.URL, creds.AccessToken)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout())
	defer cancel()

	conn, resp, err := c.dialer().DialContext(dialCtx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.callbacks = callbacks
	c.connected = true
	c.closing = false
	c.mu.Unlock()

	go c.readLoop(conn)

	return nil
}

// Disconnect tears the socket down. Further sends become silent no-ops
// until the next Connect. Reconnection is a caller decision; this
// client never redials on its own.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	if conn != nil {
		c.closing = true
	}
	c.mu.Unlock()

	if conn == nil {
		return
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = conn.Close()
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) SendText(text string) {
	c.send(outboundFrame{Type: frameText, Text: text})
}

func (c *Client) SendSpeechStart() {
	c.send(outboundFrame{Type: frameSpeechStart})
}

// SendSpeechAudio forwards one base64-encoded audio chunk.
func (c *Client) SendSpeechAudio(chunk string) {
	c.send(outboundFrame{Type: frameSpeechAudio, Audio: chunk})
}

func (c *Client) SendSpeechEnd() {
	c.send(outboundFrame{Type: frameSpeechEnd})
}

// SendCameraFrame forwards one base64-encoded image frame.
func (c *Client) SendCameraFrame(frame string) {
	c.send(outboundFrame{Type: frameCameraFrame, Frame: frame})
}

// send drops the frame when disconnected. The write happens under the
// client lock because gorilla permits only one concurrent writer.
func (c *Client) send(frame outboundFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		c.logger().Debug("dropping frame while disconnected", "type", frame.Type)
		return
	}

	if err := c.conn.WriteJSON(frame); err != nil {
		c.logger().Debug("stream write failed", "type", frame.Type, "err", err)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	var readErr error
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			// One corrupted frame must not end an otherwise healthy
			// session.
			c.logger().Debug("dropping malformed frame", "err", err)
			continue
		}

		c.dispatch(frame)
	}

	c.mu.Lock()
	if c.conn != conn {
		// A replacement connection took over; this loop's teardown
		// already happened.
		c.mu.Unlock()
		return
	}
	callbacks := c.callbacks
	localClose := c.closing
	c.conn = nil
	c.connected = false
	c.closing = false
	c.mu.Unlock()

	_ = conn.Close()

	if callbacks.OnDisconnect != nil {
		if localClose || websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			callbacks.OnDisconnect(nil)
			return
		}
		callbacks.OnDisconnect(readErr)
	}
}

// dispatch invokes exactly one callback per frame, in socket arrival
// order. Unknown tags are dropped, never surfaced.
func (c *Client) dispatch(frame inboundFrame) {
	c.mu.Lock()
	callbacks := c.callbacks
	c.mu.Unlock()

	switch frame.Type {
	case frameStatus:
		if callbacks.OnStatus != nil {
			callbacks.OnStatus(frame.Message)
		}
	case frameTranscript:
		if callbacks.OnTranscript != nil {
			callbacks.OnTranscript(frame.Text, frame.IsFinal)
		}
	case frameCameraAnalysis:
		if callbacks.OnCameraAnalysis != nil {
			callbacks.OnCameraAnalysis(frame.Description)
		}
	case frameComplete:
		if callbacks.OnComplete != nil && frame.Response != nil {
			callbacks.OnComplete(turnFromInbound(*frame.Response))
		}
	case frameError:
		if callbacks.OnServerError != nil {
			callbacks.OnServerError(frame.Detail)
		}
	default:
		c.logger().Debug("dropping unknown frame", "type", frame.Type)
	}
}

func turnFromInbound(resp inboundResponse) domain.ChatTurn {
	artifacts := make([]domain.Artifact, 0, len(resp.Artifacts))
	for _, entry := range resp.Artifacts {
		artifacts = append(artifacts, domain.Artifact{
			ID:          entry.ID,
			Type:        entry.Type,
			Name:        entry.Name,
			DownloadURL: entry.DownloadURL,
		})
	}

	return domain.ChatTurn{
		SessionID: resp.SessionID,
		Response:  resp.Response,
		Artifacts: artifacts,
		Tools:     resp.ToolsUsed,
	}
}

func (c *Client) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return defaultDialTimeout
}

func (c *Client) dialer() *websocket.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}

	return &websocket.Dialer{HandshakeTimeout: c.dialTimeout()}
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func buildStreamURL(rawURL string, accessToken string) (string, error) {
	if rawURL == "" {
		return "", errors.New("stream url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", errors.New("stream url must use ws or wss")
	}
	if parsed.Host == "" {
		return "", errors.New("stream url host is required")
	}

	query := parsed.Query()
	query.Set("token", accessToken)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
