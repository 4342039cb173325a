package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

const maxResponseBytes = 1 << 20

// Error carries the HTTP status and a best-effort message parsed from
// the response body. Authentication failures additionally unwrap to
// domain.ErrSessionExpired so callers can branch without string checks.
type Error struct {
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Client executes authenticated requests against the assistant backend.
// Every call gets the stored access token attached as a bearer header;
// a 401 triggers at most one token refresh followed by at most one
// retry of the original request. Concurrent 401s share a single
// in-flight refresh.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration

	// OnUnauthorized fires once per terminal authentication failure.
	// It is the only channel by which the session layer learns that the
	// user must log in again.
	OnUnauthorized func()

	tokens  ports.TokenStore
	refresh singleflight.Group
}

func NewClient(baseURL string, tokens ports.TokenStore) *Client {
	return &Client{
		BaseURL: baseURL,
		tokens:  tokens,
	}
}

type requestOptions struct {
	skipAuth    bool
	body        []byte
	contentType string
}

// do issues one request per the refresh-and-retry discipline. The body
// is held as bytes so the retried request can resend it.
func (c *Client) do(ctx context.Context, method string, path string, payload any, out any, opts requestOptions) error {
	endpoint, err := buildAPIURL(c.BaseURL, path)
	if err != nil {
		return err
	}

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		opts.body = encoded
		opts.contentType = "application/json"
	}

	accessToken := ""
	if !opts.skipAuth {
		creds, err := c.tokens.Load(ctx)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
		accessToken = creds.AccessToken
	}

	resp, cancel, err := c.issue(ctx, method, endpoint, accessToken, opts)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !opts.skipAuth {
		drainAndClose(resp.Body)
		cancel()

		newToken, err := c.refreshOnce(ctx)
		if err != nil {
			return err
		}

		resp, cancel, err = c.issue(ctx, method, endpoint, newToken, opts)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			drainAndClose(resp.Body)
			cancel()
			return c.terminalAuthFailure(ctx, "authentication rejected after token refresh")
		}
	}

	defer cancel()

	return decodeResponse(resp, out)
}

// issue hands the caller the response together with the request
// context's cancel. Canceling before the body is fully read aborts
// in-flight body reads, so the cancel must outlive the decode.
func (c *Client) issue(ctx context.Context, method string, endpoint string, accessToken string, opts requestOptions) (*http.Response, context.CancelFunc, error) {
	requestCtx, cancel := c.requestContext(ctx)

	var body io.Reader
	if len(opts.body) > 0 {
		body = bytes.NewReader(opts.body)
	}

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	// Binary/multipart payloads set their own content type (with its
	// boundary) through opts; never force JSON on them.
	if opts.contentType != "" {
		req.Header.Set("Content-Type", opts.contentType)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("issue request: %w", err)
	}

	return resp, cancel, nil
}

// refreshOnce exchanges the stored refresh token for a new access
// token. Concurrent callers that hit a 401 at the same moment share
// one refresh call instead of each issuing their own.
func (c *Client) refreshOnce(ctx context.Context) (string, error) {
	creds, err := c.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		c.notifyUnauthorized()
		return "", &Error{
			Status:  http.StatusUnauthorized,
			Message: "authentication required",
			cause:   domain.ErrSessionExpired,
		}
	}

	token, err, _ := c.refresh.Do(creds.RefreshToken, func() (any, error) {
		newAccess, err := c.postRefresh(ctx, creds.RefreshToken)
		if err != nil {
			clearErr := c.tokens.Clear(ctx)
			c.notifyUnauthorized()
			authErr := &Error{
				Status:  http.StatusUnauthorized,
				Message: "session expired, please log in again",
				cause:   domain.ErrSessionExpired,
			}
			if clearErr != nil {
				return nil, fmt.Errorf("%w (clear credentials: %w)", authErr, clearErr)
			}
			return nil, authErr
		}

		// The backend never rotates refresh tokens; only the access
		// token is replaced.
		saved := domain.Credentials{AccessToken: newAccess, RefreshToken: creds.RefreshToken}
		if err := c.tokens.Save(ctx, saved); err != nil {
			return nil, fmt.Errorf("persist refreshed credentials: %w", err)
		}

		return newAccess, nil
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// postRefresh calls the refresh endpoint directly rather than through
// do, so a failing refresh can never recurse into another refresh.
func (c *Client) postRefresh(ctx context.Context, refreshToken string) (string, error) {
	endpoint, err := buildAPIURL(c.BaseURL, "/auth/refresh")
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("encode refresh request: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("request token refresh: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("request token refresh: %s", decodeErrorMessage(resp))
	}

	var parsed refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("refresh response missing access token")
	}

	return parsed.AccessToken, nil
}

func (c *Client) terminalAuthFailure(ctx context.Context, message string) error {
	clearErr := c.tokens.Clear(ctx)
	c.notifyUnauthorized()
	authErr := &Error{
		Status:  http.StatusUnauthorized,
		Message: message,
		cause:   domain.ErrSessionExpired,
	}
	if clearErr != nil {
		return fmt.Errorf("%w (clear credentials: %w)", authErr, clearErr)
	}
	return authErr
}

func (c *Client) notifyUnauthorized() {
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeResponse(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{
			Status:  resp.StatusCode,
			Message: decodeErrorMessage(resp),
		}
	}

	// Nothing to parse on 204 or when the caller wants no body.
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}

	return nil
}

type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeErrorMessage(resp *http.Response) string {
	var parsed errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return http.StatusText(resp.StatusCode)
	}

	for _, candidate := range []string{parsed.Detail, parsed.Message, parsed.Error} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}

	return http.StatusText(resp.StatusCode)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBytes))
	_ = body.Close()
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
