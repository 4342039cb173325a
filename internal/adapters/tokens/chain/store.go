package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/nbella/ava-cli/internal/adapters/tokens/file"
	keyringstore "github.com/nbella/ava-cli/internal/adapters/tokens/keyring"
	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

// Store tries a primary token store first and falls back to a second
// one, so credentials survive on hosts without a keyring.
type Store struct {
	primary  ports.TokenStore
	fallback ports.TokenStore
}

var _ ports.TokenStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary token store is nil")
	errNilFallbackStore = errors.New("fallback token store is nil")
)

func NewStore(primary ports.TokenStore, fallback ports.TokenStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func NewKeyringFirstWithFileFallback(credentialsPath string) (*Store, error) {
	return NewStore(keyringstore.NewStore(), filestore.NewStore(credentialsPath))
}

func (s *Store) Save(ctx context.Context, creds domain.Credentials) error {
	err := s.primary.Save(ctx, creds)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Save(ctx, creds)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend save failed: %w; fallback backend save failed: %w", err, fallbackErr)
}

func (s *Store) Load(ctx context.Context) (domain.Credentials, error) {
	creds, err := s.primary.Load(ctx)
	if err == nil && !creds.Empty() {
		return creds, nil
	}
	if err != nil && shouldSkipFallback(err) {
		return domain.Credentials{}, err
	}

	// The primary is empty or unavailable; the pair may have been saved
	// through the fallback.
	fallbackCreds, fallbackErr := s.fallback.Load(ctx)
	if fallbackErr == nil {
		return fallbackCreds, nil
	}
	if err == nil {
		return domain.Credentials{}, fallbackErr
	}

	return domain.Credentials{}, fmt.Errorf("primary backend load failed: %w; fallback backend load failed: %w", err, fallbackErr)
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.primary.Clear(ctx)
	if err != nil && shouldSkipFallback(err) {
		return err
	}

	// Clear both backends so a later Load cannot resurrect a stale pair.
	fallbackErr := s.fallback.Clear(ctx)
	if err == nil && fallbackErr == nil {
		return nil
	}
	if err != nil && fallbackErr != nil {
		return fmt.Errorf("primary backend clear failed: %w; fallback backend clear failed: %w", err, fallbackErr)
	}
	if fallbackErr != nil {
		return fallbackErr
	}

	// A stale pair left in the primary would resurface on the next Load.
	return err
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
