package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

const (
	storeDirMode        = 0o700
	credentialsFileMode = 0o600
)

var errHalfCredentialPair = errors.New("credential pair must carry both tokens")

// Store keeps the credential pair in a single TOML file so both tokens
// are written and cleared together.
type Store struct {
	path string
	mu   sync.RWMutex
}

var _ ports.TokenStore = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

type credentialsSchema struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

func (s *Store) Save(ctx context.Context, creds domain.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !creds.Valid() {
		return errHalfCredentialPair
	}

	data, err := toml.Marshal(credentialsSchema{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), storeDirMode); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, credentialsFileMode); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}

	return nil
}

func (s *Store) Load(ctx context.Context) (domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credentials{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Credentials{}, nil
		}
		return domain.Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	var schema credentialsSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode credentials file: %w", err)
	}

	return domain.Credentials{
		AccessToken:  schema.AccessToken,
		RefreshToken: schema.RefreshToken,
	}, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credentials file: %w", err)
	}

	return nil
}
