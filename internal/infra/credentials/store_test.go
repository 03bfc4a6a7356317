package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GCUGrayArea/delicious-lotus/internal/sqlinline"
)

type stubExecutor struct {
	token   string
	err     error
	queried int
	exec    struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queried++
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " r8_abc123 "})
	key, err := store.Token(context.Background(), "replicate")
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "r8_abc123" {
		t.Fatalf("expected r8_abc123, got %q", key)
	}
}

func TestToken_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.Token(context.Background(), "replicate")
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestResolvePrefersConfiguredValue(t *testing.T) {
	exec := &stubExecutor{token: "stored"}
	store := NewStore(exec)
	key, err := store.Resolve(context.Background(), "dashscope", " from-env ")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "from-env" {
		t.Fatalf("expected from-env, got %q", key)
	}
	if exec.queried != 0 {
		t.Fatalf("database should not be consulted when configured")
	}
	key, err = store.Resolve(context.Background(), "dashscope", "")
	if err != nil || key != "stored" {
		t.Fatalf("Resolve fallback = %q, %v", key, err)
	}
}

func TestResolveWithoutDatabase(t *testing.T) {
	var store *Store
	key, err := store.Resolve(context.Background(), "replicate", "")
	if err != nil || key != "" {
		t.Fatalf("Resolve on nil store = %q, %v", key, err)
	}
}

func TestSetToken(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), " Replicate ", "secret"); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if exec.exec.query != sqlinline.QUpsertIntegrationToken {
		t.Fatalf("unexpected query %q", exec.exec.query)
	}
	if len(exec.exec.args) < 2 || exec.exec.args[0] != "replicate" || exec.exec.args[1] != "secret" {
		t.Fatalf("unexpected args: %#v", exec.exec.args)
	}
	if string(exec.exec.args[2].([]byte)) != `{"hint":"****"}` {
		t.Fatalf("short tokens must be fully masked, got %s", exec.exec.args[2])
	}
	if err := store.SetToken(context.Background(), "replicate", "  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestSetTokenStoresHint(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), "openai", "sk-proj-abcdef123456"); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if got := string(exec.exec.args[2].([]byte)); got != `{"hint":"****3456"}` {
		t.Fatalf("properties = %s", got)
	}
}

func TestEnsureSchema(t *testing.T) {
	exec := &stubExecutor{}
	if err := NewStore(exec).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if exec.exec.query != sqlinline.QEnsureIntegrationTokenSchema {
		t.Fatalf("unexpected query %q", exec.exec.query)
	}
}

func TestSetTokenRejectsUnknownProvider(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), "gemini", "secret"); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
	if exec.exec.query != "" {
		t.Fatalf("nothing should be written, got %q", exec.exec.query)
	}
}

func TestEnvVar(t *testing.T) {
	cases := map[string]string{
		"replicate":  "REPLICATE_API_TOKEN",
		" DashScope": "DASHSCOPE_API_KEY",
		"openai":     "OPENAI_API_KEY",
	}
	for provider, want := range cases {
		got, ok := EnvVar(provider)
		if !ok || got != want {
			t.Fatalf("EnvVar(%q) = %q, %v", provider, got, ok)
		}
	}
	if _, ok := EnvVar("gemini"); ok {
		t.Fatalf("gemini should not be supported")
	}
}
