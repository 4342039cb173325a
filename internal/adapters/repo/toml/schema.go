package toml

import (
	"fmt"

	"github.com/nbella/ava-cli/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Default  string          `toml:"default,omitempty"`
	Profiles []profileSchema `toml:"profiles"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported profiles schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type profileSchema struct {
	Name         string `toml:"name"`
	APIBaseURL   string `toml:"api_base_url"`
	WebSocketURL string `toml:"websocket_url"`
}

func toSchema(profile domain.Profile) profileSchema {
	return profileSchema{
		Name:         profile.Name,
		APIBaseURL:   profile.APIBaseURL,
		WebSocketURL: profile.WebSocketURL,
	}
}

func fromSchema(entry profileSchema) domain.Profile {
	return domain.Profile{
		Name:         entry.Name,
		APIBaseURL:   entry.APIBaseURL,
		WebSocketURL: entry.WebSocketURL,
	}
}
