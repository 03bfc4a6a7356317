package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLintFlagsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package q\n\nconst QOk = `--sql 11111111-2222-3333-4444-555555555555\nselect 1`\n\nconst QMissing = `select 2`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QDup = `--sql 11111111-2222-3333-4444-555555555555\ndelete from t`\n\nconst Label = \"not sql\"\n")

	violations, err := lint([]string{dir})
	require.NoError(t, err)
	require.Len(t, violations, 2)

	byName := map[string]violation{}
	for _, v := range violations {
		byName[v.name] = v
	}
	require.Contains(t, byName["QMissing"].message, "missing or invalid")
	require.Contains(t, byName["QDup"].message, "QOk")
}

func TestLintAcceptsRepositoryQueries(t *testing.T) {
	violations, err := lint([]string{filepath.Join("..", "..", "sqlinline")})
	require.NoError(t, err)
	require.Empty(t, violations)
}
