package keyring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

const credentialsEntry = "ava/credentials"

var (
	ErrUnavailable        = errors.New("pass command unavailable")
	errHalfCredentialPair = errors.New("credential pair must carry both tokens")
)

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

// Store keeps the credential pair as one pass(1) entry holding a JSON
// payload, so both tokens live and die together.
type Store struct {
	run runFunc
}

var _ ports.TokenStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: runPassCommand}
}

type credentialsPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Store) Save(ctx context.Context, creds domain.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !creds.Valid() {
		return errHalfCredentialPair
	}

	payload, err := json.Marshal(credentialsPayload{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	_, stderr, err := s.run(ctx, string(payload)+"\n", "insert", "-m", "-f", credentialsEntry)
	if err != nil {
		return formatError("save", err, stderr)
	}

	return nil
}

func (s *Store) Load(ctx context.Context) (domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credentials{}, err
	}

	stdout, stderr, err := s.run(ctx, "", "show", credentialsEntry)
	if err != nil {
		if entryMissing(stderr) {
			return domain.Credentials{}, nil
		}
		return domain.Credentials{}, formatError("load", err, stderr)
	}

	stdout = strings.TrimSuffix(stdout, "\n")
	stdout = strings.TrimSuffix(stdout, "\r")

	var payload credentialsPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode credentials entry: %w", err)
	}

	return domain.Credentials{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, "", "rm", "-f", credentialsEntry)
	if err != nil {
		if entryMissing(stderr) {
			return nil
		}
		return formatError("clear", err, stderr)
	}

	return nil
}

func entryMissing(stderr string) bool {
	return strings.Contains(stderr, "is not in the password store")
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s credentials: %w", op, err)
	}

	return fmt.Errorf("pass %s credentials: %w: %s", op, err, stderr)
}
