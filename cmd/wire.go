package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/nbella/ava-cli/internal/adapters/api"
	tomlrepo "github.com/nbella/ava-cli/internal/adapters/repo/toml"
	"github.com/nbella/ava-cli/internal/adapters/stream"
	chainstore "github.com/nbella/ava-cli/internal/adapters/tokens/chain"
	"github.com/nbella/ava-cli/internal/application"
	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

type app struct {
	chat     *application.ChatService
	api      *api.Client
	stream   *stream.Client
	tokens   ports.TokenStore
	profiles ports.ProfileRepository
	now      func() time.Time
}

func wireApp() (*app, error) {
	profiles, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire profile repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	tokens, err := chainstore.NewKeyringFirstWithFileFallback(filepath.Join(homeDir, ".ava", "credentials.toml"))
	if err != nil {
		return nil, fmt.Errorf("wire token store chain: %w", err)
	}

	baseURL, wsURL := resolveEndpoints(profiles)

	apiClient := api.NewClient(baseURL, tokens)
	apiClient.OnUnauthorized = func() {
		_, _ = fmt.Fprintln(os.Stderr, "your session has expired, please log in again")
	}

	return &app{
		chat:     application.NewChatService(apiClient, ports.SystemClock{}),
		api:      apiClient,
		stream:   stream.NewClient(wsURL, tokens),
		tokens:   tokens,
		profiles: profiles,
		now:      time.Now,
	}, nil
}

func resolveEndpoints(profiles ports.ProfileRepository) (baseURL string, wsURL string) {
	baseURL = "http://localhost:8000"
	wsURL = "ws://localhost:8000/chat/ws"

	profile, err := profiles.Default(context.Background())
	if err == nil {
		if profile.APIBaseURL != "" {
			baseURL = profile.APIBaseURL
		}
		if profile.WebSocketURL != "" {
			wsURL = profile.WebSocketURL
		}
	} else if !errors.Is(err, domain.ErrProfileNotFound) {
		// A broken profiles file should not brick the CLI; env and
		// defaults still apply.
		_, _ = fmt.Fprintf(os.Stderr, "warning: load default profile: %v\n", err)
	}

	baseURL = envOrDefault("AVA_API_BASE_URL", baseURL)
	wsURL = envOrDefault("AVA_WS_URL", wsURL)

	return baseURL, wsURL
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
