package ports

import (
	"context"

	"github.com/nbella/ava-cli/internal/domain"
)

// TokenStore persists the credential pair. Load on a store with no
// prior state returns zero Credentials and a nil error; callers check
// the individual tokens, not the error, to learn whether the user is
// authenticated.
type TokenStore interface {
	Save(ctx context.Context, creds domain.Credentials) error
	Load(ctx context.Context) (domain.Credentials, error)
	Clear(ctx context.Context) error
}
