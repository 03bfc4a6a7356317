// Package credentials reads provider API tokens that operators rotate in the
// database instead of the process environment.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/normalize"
	"github.com/GCUGrayArea/delicious-lotus/internal/sqlinline"
)

const ProviderOpenAI = "openai"

// providerEnv maps each stored token to the environment variable that takes
// precedence over it.
var providerEnv = map[string]string{
	normalize.ProviderReplicate: "REPLICATE_API_TOKEN",
	normalize.ProviderDashScope: "DASHSCOPE_API_KEY",
	ProviderOpenAI:              "OPENAI_API_KEY",
}

// EnvVar returns the environment variable overriding provider's stored token.
func EnvVar(provider string) (string, bool) {
	v, ok := providerEnv[strings.ToLower(strings.TrimSpace(provider))]
	return v, ok
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the configured value and falls back to the stored token.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	if s == nil || s.sql == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

// SetToken stores or rotates the token for provider.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("credentials: token is required")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := providerEnv[provider]; !ok {
		return fmt.Errorf("credentials: unsupported provider %q", provider)
	}
	raw, err := json.Marshal(map[string]string{"hint": tokenHint(token)})
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("credentials: store %s token: %w", provider, err)
	}
	return nil
}

// EnsureSchema creates the token table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QEnsureIntegrationTokenSchema); err != nil {
		return fmt.Errorf("credentials: ensure schema: %w", err)
	}
	return nil
}

// tokenHint keeps the last four characters so operators can tell which
// token is stored without reading it.
func tokenHint(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
