package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nbella/ava-cli/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	UserInfo     map[string]any `json:"user_info"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair and persists it. The
// call bypasses bearer injection: a stale stored token must never leak
// onto a login request.
func (c *Client) Login(ctx context.Context, email string, password string) (map[string]any, error) {
	var parsed loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &parsed, requestOptions{skipAuth: true})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if parsed.AccessToken == "" || parsed.RefreshToken == "" {
		return nil, errors.New("login response missing token pair")
	}

	creds := domain.Credentials{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}
	if err := c.tokens.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("persist credentials: %w", err)
	}

	return parsed.UserInfo, nil
}

// Logout revokes the refresh token server-side and clears the stored
// pair. The local pair is cleared even when revocation fails, so a
// dead backend cannot pin the client in an authenticated state.
func (c *Client) Logout(ctx context.Context) error {
	creds, err := c.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	var revokeErr error
	if creds.RefreshToken != "" {
		revokeErr = c.do(ctx, http.MethodPost, "/auth/logout", logoutRequest{RefreshToken: creds.RefreshToken}, nil, requestOptions{skipAuth: true})
	}

	if err := c.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	if revokeErr != nil {
		return fmt.Errorf("logout: %w", revokeErr)
	}

	return nil
}
