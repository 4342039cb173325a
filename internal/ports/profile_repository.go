package ports

import (
	"context"

	"github.com/nbella/ava-cli/internal/domain"
)

type ProfileRepository interface {
	Get(ctx context.Context, name string) (domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	Save(ctx context.Context, profile domain.Profile) error
	SetDefault(ctx context.Context, name string) error
	Default(ctx context.Context) (domain.Profile, error)
}
